package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/middleware/requestid"
)

func errorRouter(err error) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", func(c *gin.Context) { Error(c, err) })
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestErrorHidesInternalCauseAndTagsRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()

	errorRouter(errors.New("pq: relation \"news\" does not exist")).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Terjadi kesalahan, silakan coba lagi", env.Error.Message)
	assert.Equal(t, "req-42", env.Meta["request_id"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestClientErrorsCarryNoRequestMeta(t *testing.T) {
	rec := httptest.NewRecorder()

	errorRouter(appErrors.Clone(appErrors.ErrValidation, "Judul dan konten harus diisi")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "Judul dan konten harus diisi", env.Error.Message)
	assert.Nil(t, env.Meta)
}
