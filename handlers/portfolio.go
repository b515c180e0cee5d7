package handlers

import (
	"net/http"

	"papertrade/middleware"
	"papertrade/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()

	portfolio, err := h.trading.Portfolio(ctx, middleware.UserID(c))
	if err != nil {
		h.apology(c, err)
		return
	}

	data := gin.H{
		"holdings": portfolio.Holdings,
		"cash":     portfolio.Cash,
		"total":    portfolio.Total,
	}
	if !wantsJSON(c) {
		flash, err := h.sessions.PopFlash(ctx, middleware.Session(c))
		if err != nil {
			log.WithError(err).Warn("Failed to read flash message")
		}
		data["flash"] = flash
	}
	h.render(c, http.StatusOK, "index.html", "Portfolio", data)
}

func (h *Handler) BuyForm(c *gin.Context) {
	h.render(c, http.StatusOK, "buy.html", "Buy", nil)
}

func (h *Handler) Buy(c *gin.Context) {
	var form service.TradeForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderApology(c, http.StatusBadRequest, "Malformed request")
		return
	}

	receipt, err := h.trading.Buy(c.Request.Context(), middleware.UserID(c), form)
	if err != nil {
		h.apology(c, err)
		return
	}
	h.done(c, "Bought!", receipt)
}

func (h *Handler) SellForm(c *gin.Context) {
	symbols, err := h.trading.SellableSymbols(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.apology(c, err)
		return
	}
	h.render(c, http.StatusOK, "sell.html", "Sell", gin.H{"symbols": symbols})
}

func (h *Handler) Sell(c *gin.Context) {
	var form service.TradeForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderApology(c, http.StatusBadRequest, "Malformed request")
		return
	}

	receipt, err := h.trading.Sell(c.Request.Context(), middleware.UserID(c), form)
	if err != nil {
		h.apology(c, err)
		return
	}
	h.done(c, "Sold!", receipt)
}

func (h *Handler) History(c *gin.Context) {
	transactions, err := h.trading.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.apology(c, err)
		return
	}
	h.render(c, http.StatusOK, "history.html", "History", gin.H{"transactions": transactions})
}
