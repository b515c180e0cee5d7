package handlers

import (
	"html/template"

	"papertrade/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route of the application.
func NewRouter(h *Handler, views *template.Template) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(), gin.CustomRecovery(h.Recover), middleware.NoCache())
	router.SetHTMLTemplate(views)
	router.NoRoute(h.NotFound)

	router.GET("/healthz", h.Health)

	// Public routes
	router.GET("/login", h.LoginForm)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/register", h.RegisterForm)
	router.POST("/register", h.Register)

	// Protected routes
	auth := router.Group("/")
	auth.Use(middleware.RequireLogin(h.sessions))
	{
		auth.GET("/", h.Index)
		auth.GET("/buy", h.BuyForm)
		auth.POST("/buy", h.Buy)
		auth.GET("/sell", h.SellForm)
		auth.POST("/sell", h.Sell)
		auth.GET("/quote", h.QuoteForm)
		auth.POST("/quote", h.Quote)
		auth.GET("/history", h.History)
	}

	return router
}
