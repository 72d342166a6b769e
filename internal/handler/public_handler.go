package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-web-api/internal/middleware"
	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/service"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/response"
)

const maxPublicLimit = 100

// PublicSource loads the visible rows of one section and reports whether the
// bundled fallback data was used.
type PublicSource func(ctx context.Context, limit int) (interface{}, bool, error)

type publicLister[T any] interface {
	PublicList(ctx context.Context, limit int) (*service.PublicListing[T], error)
}

// PublicSection adapts a content service to a PublicSource.
func PublicSection[T any](svc publicLister[T]) PublicSource {
	return func(ctx context.Context, limit int) (interface{}, bool, error) {
		listing, err := svc.PublicList(ctx, limit)
		if err != nil {
			return nil, false, err
		}
		return listing.Items, listing.Fallback, nil
	}
}

type newsFinder interface {
	GetPublicBy(ctx context.Context, column, value string) (*models.NewsPost, error)
}

type structureTree interface {
	Tree(ctx context.Context) ([]*models.StructureTreeNode, bool, error)
}

type publicSettings interface {
	GetPublic(ctx context.Context, key string) (*models.SiteSetting, error)
}

// PublicHandler serves the unauthenticated website sections.
type PublicHandler struct {
	sections  map[string]PublicSource
	news      newsFinder
	structure structureTree
	settings  publicSettings
}

// NewPublicHandler constructs a public handler.
func NewPublicHandler(sections map[string]PublicSource, news newsFinder, structure structureTree, settings publicSettings) *PublicHandler {
	return &PublicHandler{sections: sections, news: news, structure: structure, settings: settings}
}

// Register mounts the public routes on group.
func (h *PublicHandler) Register(group *gin.RouterGroup) {
	for name := range h.sections {
		group.GET("/"+name, h.List(name))
	}
	if h.news != nil {
		group.GET("/news/:slug", h.NewsBySlug)
	}
	if h.structure != nil {
		group.GET("/structure/tree", h.StructureTree)
	}
	if h.settings != nil {
		group.GET("/settings/:key", h.Setting)
	}
}

// List godoc
// @Summary List a public section
// @Description Returns visible rows in display order. When nothing is published the section's default content is returned with meta.fallback=true.
// @Tags Public
// @Produce json
// @Param resource path string true "news, gallery, announcements, staff, alumni, classes, calendar, structure"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /public/{resource} [get]
func (h *PublicHandler) List(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		source, ok := h.sections[name]
		if !ok {
			response.Error(c, appErrors.ErrNotFound)
			return
		}
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "Parameter limit tidak valid"))
				return
			}
			limit = parsed
		}
		if limit > maxPublicLimit {
			limit = maxPublicLimit
		}

		items, fallback, err := source(c.Request.Context(), limit)
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetFallback(c, fallback)
		response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
	}
}

// NewsBySlug godoc
// @Summary Get a published news post
// @Tags Public
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/news/{slug} [get]
func (h *PublicHandler) NewsBySlug(c *gin.Context) {
	post, err := h.news.GetPublicBy(c.Request.Context(), "slug", c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// StructureTree godoc
// @Summary Organisation structure as a tree
// @Tags Public
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/structure/tree [get]
func (h *PublicHandler) StructureTree(c *gin.Context) {
	tree, fallback, err := h.structure.Tree(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetFallback(c, fallback)
	response.JSON(c, http.StatusOK, tree, nil, middleware.ExtractMeta(c))
}

// Setting godoc
// @Summary Get a public settings record
// @Tags Public
// @Produce json
// @Param key path string true "hero_slides, stats, ppdb_info, contact_info, footer_config"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/settings/{key} [get]
func (h *PublicHandler) Setting(c *gin.Context) {
	setting, err := h.settings.GetPublic(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetFallback(c, setting.IsDefault)
	response.JSON(c, http.StatusOK, setting, nil, middleware.ExtractMeta(c))
}
