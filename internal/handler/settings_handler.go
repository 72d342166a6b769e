package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/pkg/response"
)

type settingsService interface {
	List(ctx context.Context) ([]models.SiteSetting, error)
	Get(ctx context.Context, key string) (*models.SiteSetting, error)
	Update(ctx context.Context, key string, payload []byte, updatedBy string) (*models.SiteSetting, error)
}

// SettingsHandler manages homepage settings records.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// List godoc
// @Summary List settings records
// @Tags Admin Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings [get]
func (h *SettingsHandler) List(c *gin.Context) {
	settings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// Get godoc
// @Summary Get settings record
// @Tags Admin Settings
// @Produce json
// @Param key path string true "Settings key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings/{key} [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	setting, err := h.service.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// Update godoc
// @Summary Replace settings record
// @Tags Admin Settings
// @Accept json
// @Produce json
// @Param key path string true "Settings key"
// @Param payload body object true "Typed settings value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings/{key} [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	setting, err := h.service.Update(c.Request.Context(), c.Param("key"), payload, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}
