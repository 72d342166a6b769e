package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		*seen = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddlewareReusesWellFormedHeader(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, "web-4f2a.1")
	rec := httptest.NewRecorder()

	newRouter(&seen).ServeHTTP(rec, req)

	assert.Equal(t, "web-4f2a.1", rec.Header().Get(headerKey))
	assert.Equal(t, "web-4f2a.1", seen)
}

func TestMiddlewareReplacesMalformedHeader(t *testing.T) {
	for name, value := range map[string]string{
		"missing":   "",
		"injection": "abc\nX-Admin: 1",
		"too long":  strings.Repeat("a", maxLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if value != "" {
				req.Header[http.CanonicalHeaderKey(headerKey)] = []string{value}
			}
			rec := httptest.NewRecorder()

			newRouter(&seen).ServeHTTP(rec, req)

			got := rec.Header().Get(headerKey)
			_, err := uuid.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, got, seen)
		})
	}
}
