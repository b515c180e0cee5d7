package handlers

import (
	"net/http"

	"papertrade/models"
	"papertrade/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) LoginForm(c *gin.Context) {
	h.clearSession(c)
	h.render(c, http.StatusOK, "login.html", "Log In", nil)
}

func (h *Handler) Login(c *gin.Context) {
	h.clearSession(c)

	var form service.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderApology(c, http.StatusBadRequest, "Malformed request")
		return
	}

	user, err := h.trading.Login(c.Request.Context(), form)
	if err != nil {
		h.apology(c, err)
		return
	}
	h.startSession(c, user, "")
}

func (h *Handler) Logout(c *gin.Context) {
	h.clearSession(c)
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) RegisterForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", "Register", nil)
}

func (h *Handler) Register(c *gin.Context) {
	var form service.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderApology(c, http.StatusBadRequest, "Malformed request")
		return
	}

	user, err := h.trading.Register(c.Request.Context(), form)
	if err != nil {
		h.apology(c, err)
		return
	}

	h.clearSession(c)
	h.startSession(c, user, "Registered!")
}

func (h *Handler) startSession(c *gin.Context, user *models.User, flash string) {
	ctx := c.Request.Context()

	sess, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		h.apology(c, err)
		return
	}
	h.setSessionCookie(c, sess)

	if flash != "" {
		if err := h.sessions.SetFlash(ctx, sess, flash); err != nil {
			log.WithError(err).Warn("Failed to set flash message")
		}
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"user": user, "token": sess.Token})
		return
	}
	c.Redirect(http.StatusFound, "/")
}
