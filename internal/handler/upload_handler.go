package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-web-api/internal/service"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/response"
)

// multipart framing allowance on top of the file limit
const multipartOverhead = 64 << 10

type uploadService interface {
	Upload(ctx context.Context, file service.UploadFile, folder string) (*service.UploadResult, error)
	UseURL(raw string) (*service.UploadResult, error)
	Delete(ctx context.Context, publicURL string) error
	MaxSize() int64
}

// UploadHandler accepts images for content rows.
type UploadHandler struct {
	service uploadService
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(svc uploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

type imageURLRequest struct {
	URL string `json:"url"`
}

// Upload godoc
// @Summary Upload an image
// @Description Multipart form with "file" (image/*, max 5MB) and optional "folder"; or JSON {"url": "..."} to use a pasted link.
// @Tags Admin Uploads
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param file formData file false "Image file"
// @Param folder formData string false "Target folder"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req imageURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err))
			return
		}
		res, err := h.service.UseURL(req.URL)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, res, nil)
		return
	}

	limit := h.service.MaxSize() + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || c.Request.ContentLength > limit {
			response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("Ukuran file maksimal %dMB", h.service.MaxSize()>>20)))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "File wajib diunggah"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "File tidak dapat dibaca"))
		return
	}
	defer file.Close()

	res, err := h.service.Upload(c.Request.Context(), service.UploadFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}, c.PostForm("folder"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Delete godoc
// @Summary Delete an uploaded image
// @Description Links outside the storage bucket are ignored.
// @Tags Admin Uploads
// @Accept json
// @Param payload body imageURLRequest true "Public URL"
// @Success 204
// @Security BearerAuth
// @Router /admin/uploads [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		var req imageURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err))
			return
		}
		target = req.URL
	}
	if strings.TrimSpace(target) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "URL gambar wajib diisi"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), target); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
