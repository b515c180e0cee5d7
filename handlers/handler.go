package handlers

import (
	"context"
	"errors"
	"net/http"

	"papertrade/middleware"
	"papertrade/service"
	"papertrade/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	log "github.com/sirupsen/logrus"
)

// Sessions is the session mechanism the handlers need.
type Sessions interface {
	middleware.SessionResolver
	Create(ctx context.Context, userID uint) (*session.Session, error)
	Destroy(ctx context.Context, token string) error
	SetFlash(ctx context.Context, sess *session.Session, message string) error
	PopFlash(ctx context.Context, sess *session.Session) (string, error)
	Ping(ctx context.Context) error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the trading routes.
type Handler struct {
	trading       *service.Trading
	sessions      Sessions
	store         Pinger
	secureCookies bool
}

func New(trading *service.Trading, sessions Sessions, store Pinger, secureCookies bool) *Handler {
	return &Handler{
		trading:       trading,
		sessions:      sessions,
		store:         store,
		secureCookies: secureCookies,
	}
}

var offered = []string{binding.MIMEHTML, binding.MIMEJSON}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(offered...) == binding.MIMEJSON
}

// render shows an HTML view, or its data as JSON when the client asks for it.
func (h *Handler) render(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if wantsJSON(c) {
		c.JSON(status, data)
		return
	}
	data["title"] = title
	data["authenticated"] = middleware.Session(c) != nil
	c.HTML(status, name, data)
}

// done finishes a successful form post: a flash and a redirect for browsers,
// the result for API clients.
func (h *Handler) done(c *gin.Context, flash string, result interface{}) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": flash, "result": result})
		return
	}
	if sess := middleware.Session(c); sess != nil && flash != "" {
		if err := h.sessions.SetFlash(c.Request.Context(), sess, flash); err != nil {
			log.WithError(err).Warn("Failed to set flash message")
		}
	}
	c.Redirect(http.StatusFound, "/")
}

// apology renders a handled failure with its own message, and anything else
// as a bare 500 with the detail kept in the server log.
func (h *Handler) apology(c *gin.Context, err error) {
	var serr *service.Error
	if errors.As(err, &serr) {
		if serr.Kind == service.KindTransport {
			log.WithError(err).WithField("path", c.Request.URL.Path).Warn("Quote provider failure")
		}
		h.renderApology(c, serr.Status(), serr.Message)
		return
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("Unhandled error")
	h.renderApology(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func (h *Handler) renderApology(c *gin.Context, status int, message string) {
	h.render(c, status, "apology.html", "Apology", gin.H{"code": status, "message": message})
	c.Abort()
}

// Recover is the gin recovery handler: a panic becomes a generic 500.
func (h *Handler) Recover(c *gin.Context, recovered interface{}) {
	log.WithFields(log.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"panic":  recovered,
	}).Error("Recovered from panic")
	h.renderApology(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

// NotFound renders unknown routes as an apology.
func (h *Handler) NotFound(c *gin.Context) {
	h.renderApology(c, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

// setSessionCookie issues the token as a browser-session cookie; the record
// in the session store carries the real expiry.
func (h *Handler) setSessionCookie(c *gin.Context, sess *session.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, sess.Token, 0, "/", "", h.secureCookies, true)
}

// clearSession forgets whatever session the client presented.
func (h *Handler) clearSession(c *gin.Context) {
	token := middleware.Token(c)
	if token == "" {
		return
	}
	if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
		log.WithError(err).Warn("Failed to destroy session")
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.CookieName, "", -1, "/", "", h.secureCookies, true)
}

func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"database": "ok", "sessions": "ok"}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		log.WithError(err).Error("Database health check failed")
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if err := h.sessions.Ping(ctx); err != nil {
		log.WithError(err).Error("Session store health check failed")
		status["sessions"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
