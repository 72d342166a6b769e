package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-web-api/internal/models"
)

type stubResolver map[string]*models.Session

func (s stubResolver) Resolve(ctx context.Context, authorization string) (*models.Session, error) {
	if authorization == "Bearer broken" {
		return nil, errors.New("role lookup failed")
	}
	if session, ok := s[authorization]; ok {
		return session, nil
	}
	return &models.Session{State: models.SessionUnauthenticated}, nil
}

func gatedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := stubResolver{
		"Bearer guru":  {State: models.SessionAuthenticated, User: &models.UserInfo{ID: "u2"}},
		"Bearer admin": {State: models.SessionAdmin, IsAdmin: true, User: &models.UserInfo{ID: "u1"}},
	}
	router := gin.New()
	router.Use(Session(resolver))
	router.GET("/admin", AdminGate("/login", "/"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/me", RequireSession("/login"), func(c *gin.Context) {
		c.String(http.StatusOK, SessionFromContext(c).User.ID)
	})
	return router
}

func serve(router *gin.Engine, path, authorization, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAdminGateRedirectsBrowsers(t *testing.T) {
	router := gatedRouter()

	rec := serve(router, "/admin", "", "text/html,application/xhtml+xml")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = serve(router, "/admin", "Bearer guru", "text/html")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAdminGateAPIClients(t *testing.T) {
	router := gatedRouter()

	cases := []struct {
		authorization string
		status        int
		redirect      string
	}{
		{"", http.StatusUnauthorized, "/login"},
		{"Bearer expired", http.StatusUnauthorized, "/login"},
		{"Bearer guru", http.StatusForbidden, "/"},
	}
	for _, tc := range cases {
		rec := serve(router, "/admin", tc.authorization, "application/json")
		require.Equal(t, tc.status, rec.Code, tc.authorization)
		var body struct {
			Meta map[string]interface{} `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.redirect, body.Meta["redirect"])
	}

	rec := serve(router, "/admin", "Bearer admin", "application/json")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireSession(t *testing.T) {
	router := gatedRouter()

	rec := serve(router, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, "/me", "Bearer guru", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", rec.Body.String())
}

func TestSessionResolveFailure(t *testing.T) {
	rec := serve(gatedRouter(), "/admin", "Bearer broken", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Terjadi kesalahan, silakan coba lagi")
}
