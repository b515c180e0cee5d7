package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"papertrade/session"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	// CookieName is the cookie holding the signed session token.
	CookieName = "session"

	keyUserID  = "user_id"
	keySession = "session"
)

// SessionResolver turns a session token into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// RequireLogin lets authenticated requests through and redirects everyone
// else to the login page.
func RequireLogin(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := Token(c)
		if token == "" {
			redirectToLogin(c)
			return
		}

		sess, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				log.WithError(err).Error("Failed to resolve session")
			}
			redirectToLogin(c)
			return
		}

		c.Set(keyUserID, sess.UserID)
		c.Set(keySession, sess)
		c.Next()
	}
}

// Token returns the session token from the cookie, or from a bearer
// Authorization header for API clients.
func Token(c *gin.Context) string {
	if token, err := c.Cookie(CookieName); err == nil && token != "" {
		return token
	}
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// UserID returns the authenticated user id set by RequireLogin.
func UserID(c *gin.Context) uint {
	return c.GetUint(keyUserID)
}

// Session returns the session set by RequireLogin, or nil.
func Session(c *gin.Context) *session.Session {
	if v, ok := c.Get(keySession); ok {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}
	return nil
}

func redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}
