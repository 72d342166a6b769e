package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/rand"

	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/jobs"
	"github.com/noah-isme/sma-web-api/pkg/slug"
)

const (
	// JobUploadCleanup removes an uploaded object that no row references anymore.
	JobUploadCleanup = "upload.cleanup"

	defaultUploadFolder = "images"
	sniffLength         = 3072
	randomNameLength    = 16
)

type objectStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader) (int64, error)
	Remove(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
	ObjectPath(publicURL string) (string, bool)
}

type referenceChecker interface {
	IsReferenced(ctx context.Context, url string) (bool, error)
}

// UploadFile is an incoming image upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadResult describes a stored image.
type UploadResult struct {
	URL      string `json:"url"`
	Path     string `json:"path,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// UploadService validates and stores images in the public bucket.
type UploadService struct {
	store    objectStore
	maxSize  int64
	queue    jobs.Enqueuer
	metrics  *MetricsService
	logger   *zap.Logger
	refs     referenceChecker
	randName func(n int) string
}

// NewUploadService constructs an UploadService.
func NewUploadService(store objectStore, maxSize int64, queue jobs.Enqueuer, metrics *MetricsService, logger *zap.Logger) *UploadService {
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{store: store, maxSize: maxSize, queue: queue, metrics: metrics, logger: logger, randName: rand.String}
}

// WithReferenceChecker makes cleanup keep objects that other rows still use.
func (s *UploadService) WithReferenceChecker(refs referenceChecker) *UploadService {
	s.refs = refs
	return s
}

// MaxSize returns the upload size limit in bytes.
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Upload checks that file is an image within the size limit and stores it under
// folder with a random name. Nothing is written when a check fails.
func (s *UploadService) Upload(ctx context.Context, file UploadFile, folder string) (*UploadResult, error) {
	if file.Size > s.maxSize {
		s.metrics.RecordUpload("too_large", 0)
		return nil, s.tooLarge()
	}
	if !isImageType(file.ContentType) {
		s.metrics.RecordUpload("not_image", 0)
		return nil, notImage()
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "File tidak dapat dibaca")
	}
	head = head[:n]
	if n == 0 {
		s.metrics.RecordUpload("not_image", 0)
		return nil, notImage()
	}
	if int64(n) > s.maxSize {
		s.metrics.RecordUpload("too_large", 0)
		return nil, s.tooLarge()
	}
	detected := mimetype.Detect(head)
	if !isImageType(detected.String()) {
		s.metrics.RecordUpload("not_image", 0)
		return nil, notImage()
	}

	objectPath := sanitizeFolder(folder) + "/" + s.randName(randomNameLength) + detected.Extension()
	body := io.MultiReader(bytes.NewReader(head), file.Reader)
	limited := &io.LimitedReader{R: body, N: s.maxSize + 1}
	written, err := s.store.Put(ctx, objectPath, limited)
	if err != nil {
		s.metrics.RecordUpload("failed", 0)
		s.logger.Error("store upload failed", zap.String("path", objectPath), zap.Error(err))
		return nil, appErrors.Internal(err, "Gagal mengunggah gambar")
	}
	if written > s.maxSize {
		// declared size understated the body
		if rmErr := s.store.Remove(ctx, objectPath); rmErr != nil {
			s.logger.Warn("remove oversized upload failed", zap.String("path", objectPath), zap.Error(rmErr))
		}
		s.metrics.RecordUpload("too_large", 0)
		return nil, s.tooLarge()
	}

	s.metrics.RecordUpload("accepted", written)
	return &UploadResult{
		URL:      s.store.PublicURL(objectPath),
		Path:     objectPath,
		Size:     written,
		MimeType: detected.String(),
	}, nil
}

// UseURL accepts a pasted image URL and returns it unchanged.
func (s *UploadService) UseURL(raw string) (*UploadResult, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "URL gambar tidak valid")
	}
	return &UploadResult{URL: raw}, nil
}

// Delete removes the object behind publicURL. URLs outside the bucket are ignored.
func (s *UploadService) Delete(ctx context.Context, publicURL string) error {
	objectPath, ok := s.store.ObjectPath(publicURL)
	if !ok {
		return nil
	}
	if err := s.store.Remove(ctx, objectPath); err != nil {
		return appErrors.Internal(err, "Gagal menghapus gambar")
	}
	return nil
}

// ScheduleCleanup queues removal of bucket objects referenced by urls.
func (s *UploadService) ScheduleCleanup(urls ...string) {
	for _, u := range urls {
		objectPath, ok := s.store.ObjectPath(u)
		if !ok {
			continue
		}
		if s.queue == nil {
			s.logger.Warn("no job queue, orphaned upload kept", zap.String("path", objectPath))
			continue
		}
		if err := s.queue.Enqueue(jobs.Job{Type: JobUploadCleanup, Payload: objectPath}); err != nil {
			s.logger.Warn("enqueue upload cleanup failed", zap.String("path", objectPath), zap.Error(err))
		}
	}
}

// CleanupHandler processes JobUploadCleanup jobs.
func (s *UploadService) CleanupHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		objectPath, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("upload cleanup: unexpected payload %T", job.Payload)
		}
		if s.refs != nil {
			used, err := s.refs.IsReferenced(ctx, s.store.PublicURL(objectPath))
			if err != nil {
				return err
			}
			if used {
				s.logger.Info("upload still referenced, kept", zap.String("path", objectPath))
				return nil
			}
		}
		if err := s.store.Remove(ctx, objectPath); err != nil {
			return err
		}
		s.logger.Info("orphaned upload removed", zap.String("path", objectPath))
		return nil
	}
}

func (s *UploadService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("Ukuran file maksimal %dMB", s.maxSize>>20))
}

func notImage() error {
	return appErrors.Clone(appErrors.ErrUnsupportedMedia, "File harus berupa gambar")
}

// isImageType accepts image media types except SVG.
func isImageType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if mediaType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mediaType, "image/") && len(mediaType) > len("image/")
}

func sanitizeFolder(folder string) string {
	clean := slug.Make(folder)
	if clean == "" {
		return defaultUploadFolder
	}
	return clean
}
