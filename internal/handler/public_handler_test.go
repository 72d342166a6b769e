package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-web-api/internal/middleware"
	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/service"
)

type publicListerMock struct {
	listing *service.PublicListing[models.GalleryImage]
	limit   int
}

func (m *publicListerMock) PublicList(ctx context.Context, limit int) (*service.PublicListing[models.GalleryImage], error) {
	m.limit = limit
	return m.listing, nil
}

type publicSettingsMock struct{}

func (publicSettingsMock) GetPublic(ctx context.Context, key string) (*models.SiteSetting, error) {
	return &models.SiteSetting{Key: key, Value: &models.ContactInfo{Address: "Alamat sekolah belum diatur"}, SchemaVersion: 1, IsDefault: true}, nil
}

func publicRouter(gallery *publicListerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	NewPublicHandler(map[string]PublicSource{
		"gallery": PublicSection[models.GalleryImage](gallery),
	}, nil, nil, publicSettingsMock{}).Register(router.Group("/public"))
	return router
}

func TestPublicHandlerServesFallbackMeta(t *testing.T) {
	gallery := &publicListerMock{listing: &service.PublicListing[models.GalleryImage]{
		Items:    []models.GalleryImage{{Title: "Upacara Bendera"}},
		Fallback: true,
	}}
	rec := doJSON(publicRouter(gallery), http.MethodGet, "/public/gallery?limit=6", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["fallback"])
	assert.Equal(t, 6, gallery.limit)
	var items []models.GalleryImage
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Upacara Bendera", items[0].Title)
}

func TestPublicHandlerLimit(t *testing.T) {
	gallery := &publicListerMock{listing: &service.PublicListing[models.GalleryImage]{}}
	router := publicRouter(gallery)

	rec := doJSON(router, http.MethodGet, "/public/gallery?limit=5000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxPublicLimit, gallery.limit)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["fallback"])

	rec = doJSON(router, http.MethodGet, "/public/gallery?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicHandlerSettings(t *testing.T) {
	rec := doJSON(publicRouter(&publicListerMock{}), http.MethodGet, "/public/settings/contact_info", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["fallback"])
	assert.Contains(t, string(env.Data), "Alamat sekolah belum diatur")
}
