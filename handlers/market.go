package handlers

import (
	"net/http"

	"papertrade/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) QuoteForm(c *gin.Context) {
	h.render(c, http.StatusOK, "quote.html", "Quote", nil)
}

func (h *Handler) Quote(c *gin.Context) {
	var form service.QuoteForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderApology(c, http.StatusBadRequest, "Malformed request")
		return
	}

	quote, err := h.trading.Quote(c.Request.Context(), form)
	if err != nil {
		h.apology(c, err)
		return
	}
	h.render(c, http.StatusOK, "quoted.html", "Quoted", gin.H{"quote": quote})
}
