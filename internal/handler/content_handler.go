package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-web-api/internal/models"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/response"
)

const maxContentBody = 1 << 20

type contentService[T any] interface {
	List(ctx context.Context, filter models.ListFilter) ([]T, *models.Pagination, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, payload []byte) (*T, error)
	Update(ctx context.Context, id string, payload []byte) (*T, error)
	Delete(ctx context.Context, id string) error
	TogglePublish(ctx context.Context, id string, desired *bool) (*T, error)
}

// ContentHandler exposes the admin CRUD contract of one content resource.
type ContentHandler[T any] struct {
	service contentService[T]
}

// NewContentHandler constructs a content handler.
func NewContentHandler[T any](svc contentService[T]) *ContentHandler[T] {
	return &ContentHandler[T]{service: svc}
}

// Register mounts the resource routes on group.
func (h *ContentHandler[T]) Register(group *gin.RouterGroup) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.PATCH("/:id/publish", h.TogglePublish)
	group.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List content rows
// @Tags Admin Content
// @Produce json
// @Param resource path string true "news, gallery, announcements, staff, students, alumni, classes, calendar, structure"
// @Param q query string false "Search keyword"
// @Param visible query bool false "Filter by published/active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/{resource} [get]
func (h *ContentHandler[T]) List(c *gin.Context) {
	filter := models.ListFilter{Search: strings.TrimSpace(c.Query("q"))}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	if raw := c.Query("visible"); raw != "" {
		visible, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Parameter visible tidak valid"))
			return
		}
		filter.Visible = &visible
	}

	rows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get content row
// @Tags Admin Content
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Row ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/{resource}/{id} [get]
func (h *ContentHandler[T]) Get(c *gin.Context) {
	row, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Create godoc
// @Summary Create content row
// @Tags Admin Content
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param payload body object true "Row fields"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/{resource} [post]
func (h *ContentHandler[T]) Create(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	row, err := h.service.Create(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, row)
}

// Update godoc
// @Summary Update content row
// @Description Fields absent from the payload keep their stored values.
// @Tags Admin Content
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Row ID"
// @Param payload body object true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/{resource}/{id} [put]
func (h *ContentHandler[T]) Update(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	row, err := h.service.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// TogglePublish godoc
// @Summary Toggle or set the published flag
// @Description Without a body the flag is flipped; {"published": bool} sets it explicitly.
// @Tags Admin Content
// @Accept json
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Row ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/{resource}/{id}/publish [patch]
func (h *ContentHandler[T]) TogglePublish(c *gin.Context) {
	payload, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req struct {
		Published *bool `json:"published"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Format data tidak valid"))
			return
		}
	}
	row, err := h.service.TogglePublish(c.Request.Context(), c.Param("id"), req.Published)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Delete godoc
// @Summary Delete content row
// @Tags Admin Content
// @Param resource path string true "Resource name"
// @Param id path string true "Row ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/{resource}/{id} [delete]
func (h *ContentHandler[T]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func readBody(c *gin.Context) ([]byte, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxContentBody)
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "Data terlalu besar")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "Format data tidak valid")
	}
	return payload, nil
}
