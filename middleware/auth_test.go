package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"papertrade/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeSessions map[string]uint

func (f fakeSessions) Resolve(_ context.Context, token string) (*session.Session, error) {
	id, ok := f[token]
	if !ok {
		return nil, session.ErrNoSession
	}
	return &session.Session{ID: "sid-" + token, UserID: id, Token: token}, nil
}

func newRouter(sessions SessionResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NoCache())
	r.GET("/private", RequireLogin(sessions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "session": Session(c).ID})
	})
	return r
}

func TestRequireLogin_NoCookie(t *testing.T) {
	r := newRouter(fakeSessions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireLogin_UnknownSession(t *testing.T) {
	r := newRouter(fakeSessions{})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "stale"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestRequireLogin_Authenticated(t *testing.T) {
	r := newRouter(fakeSessions{"good": 42})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "good"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id": 42, "session": "sid-good"}`, w.Body.String())
}

func TestNoCache(t *testing.T) {
	r := newRouter(fakeSessions{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))

	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))
	assert.Equal(t, "0", w.Header().Get("Expires"))
	assert.Equal(t, "no-cache", w.Header().Get("Pragma"))
}
