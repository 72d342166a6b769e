package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/repository"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-web-api/pkg/validation"
)

// ContentRepository is the table access required by ContentService.
type ContentRepository[T any] interface {
	List(ctx context.Context, filter models.ListFilter) ([]T, int, error)
	ListVisible(ctx context.Context, limit int) ([]T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindVisibleBy(ctx context.Context, column string, value interface{}) (*T, error)
	Exists(ctx context.Context, column string, value interface{}, excludeID string) (bool, error)
	Create(ctx context.Context, row *T) error
	Update(ctx context.Context, row *T) error
	Delete(ctx context.Context, id string) error
	ToggleVisibility(ctx context.Context, id string, now time.Time) (*T, error)
	SetVisibility(ctx context.Context, id string, visible bool, now time.Time) (*T, error)
	Count(ctx context.Context, visibleOnly bool) (int, error)
}

// ImageCleaner removes uploaded images no longer referenced by a row.
type ImageCleaner interface {
	ScheduleCleanup(urls ...string)
}

// UniqueField declares a column that must not repeat across rows.
type UniqueField[T any] struct {
	Column  string
	Value   func(row *T) interface{}
	Message string
}

// Resource describes one admin-managed content table.
type Resource[T any] struct {
	// Name is the URL segment and cache namespace, e.g. "news".
	Name string
	// Label is the Indonesian noun used in messages, e.g. "berita".
	Label string
	// RequiredFields lists JSON field names whose absence yields RequiredMessage.
	RequiredFields  []string
	RequiredMessage string
	Defaults        func() T
	Fallback        func() []T
	Unique          []UniqueField[T]
	// BeforeSave runs after validation and before uniqueness checks.
	BeforeSave func(ctx context.Context, row *T) error
}

// PublicListing is a public section payload.
type PublicListing[T any] struct {
	Items    []T  `json:"items"`
	Fallback bool `json:"fallback"`
}

// ContentService implements the admin CRUD contract and public reads for one resource.
type ContentService[T any, PT models.EntityPtr[T]] struct {
	resource  Resource[T]
	repo      ContentRepository[T]
	validator *validation.Validator
	cache     *CacheService
	cacheTTL  time.Duration
	cleaner   ImageCleaner
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	debug     bool
}

// ContentOptions carries optional collaborators of a ContentService.
type ContentOptions struct {
	Cache    *CacheService
	CacheTTL time.Duration
	Cleaner  ImageCleaner
	Metrics  *MetricsService
	Now      func() time.Time
	// DebugErrors adds the underlying cause to backend failure logs.
	DebugErrors bool
}

// NewContentService constructs a ContentService.
func NewContentService[T any, PT models.EntityPtr[T]](resource Resource[T], repo ContentRepository[T], validate *validation.Validator, logger *zap.Logger, opts ContentOptions) *ContentService[T, PT] {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ContentService[T, PT]{
		resource:  resource,
		repo:      repo,
		validator: validate,
		logger:    logger.With(zap.String("resource", resource.Name)),
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		cleaner:   opts.Cleaner,
		metrics:   opts.Metrics,
		now:       opts.Now,
		debug:     opts.DebugErrors,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// Resource returns the resource descriptor.
func (s *ContentService[T, PT]) Resource() Resource[T] {
	return s.resource
}

// List returns the admin listing plus pagination data.
func (s *ContentService[T, PT]) List(ctx context.Context, filter models.ListFilter) ([]T, *models.Pagination, error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, s.backendError(err, "memuat")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a row by id.
func (s *ContentService[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	return s.load(ctx, id)
}

// Create decodes payload over the default row, validates it and inserts it.
func (s *ContentService[T, PT]) Create(ctx context.Context, payload []byte) (*T, error) {
	var row T
	if s.resource.Defaults != nil {
		row = s.resource.Defaults()
	}
	if err := decodePayload(payload, &row); err != nil {
		return nil, err
	}
	PT(&row).Restore("", time.Time{})

	if err := s.prepare(ctx, &row, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return nil, s.saveError(err)
	}
	s.afterMutation(ctx, "create")
	return &row, nil
}

// Update merges payload over the stored row. Fields absent from payload keep their values.
func (s *ContentService[T, PT]) Update(ctx context.Context, id string, payload []byte) (*T, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	entity := PT(row)
	storedID, created := entity.GetID(), entity.Created()
	previous := imageURLs(row)

	if err := decodePayload(payload, row); err != nil {
		return nil, err
	}
	entity.Restore(storedID, created)

	if err := s.prepare(ctx, row, storedID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.notFound()
		}
		return nil, s.saveError(err)
	}
	s.cleanup(droppedURLs(previous, imageURLs(row))...)
	s.afterMutation(ctx, "update")
	return row, nil
}

// Delete removes a row and schedules cleanup of the images it owned.
func (s *ContentService[T, PT]) Delete(ctx context.Context, id string) error {
	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.notFound()
		}
		return s.backendError(err, "menghapus")
	}
	s.cleanup(imageURLs(row)...)
	s.afterMutation(ctx, "delete")
	return nil
}

// TogglePublish flips the visibility flag, or sets it when desired is provided.
func (s *ContentService[T, PT]) TogglePublish(ctx context.Context, id string, desired *bool) (*T, error) {
	var (
		row *T
		err error
	)
	now := s.now()
	if err := s.checkPublish(ctx, id, desired, now); err != nil {
		return nil, err
	}
	if desired == nil {
		row, err = s.repo.ToggleVisibility(ctx, id, now)
	} else {
		row, err = s.repo.SetVisibility(ctx, id, *desired, now)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.notFound()
		}
		return nil, s.backendError(err, "menyimpan")
	}
	s.afterMutation(ctx, "publish")
	return row, nil
}

// PublicList returns visible rows in display order, or the default dataset when none exist.
func (s *ContentService[T, PT]) PublicList(ctx context.Context, limit int) (*PublicListing[T], error) {
	if limit < 0 {
		limit = 0
	}
	key := PublicKey(s.resource.Name, "list:"+strconv.Itoa(limit))
	var cached PublicListing[T]
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.repo.ListVisible(ctx, limit)
	if err != nil {
		s.logger.Warn("public list failed, serving defaults", causeField(s.debug, err))
		return s.fallback(limit), nil
	}
	if len(rows) == 0 {
		listing := s.fallback(limit)
		s.cache.Set(ctx, key, listing, s.cacheTTL)
		return listing, nil
	}
	listing := &PublicListing[T]{Items: rows}
	s.cache.Set(ctx, key, listing, s.cacheTTL)
	return listing, nil
}

// GetPublicBy returns a single visible row matched on column.
func (s *ContentService[T, PT]) GetPublicBy(ctx context.Context, column string, value string) (*T, error) {
	key := PublicKey(s.resource.Name, column+":"+value)
	var cached T
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}
	row, err := s.repo.FindVisibleBy(ctx, column, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.notFound()
		}
		return nil, s.backendError(err, "memuat")
	}
	s.cache.Set(ctx, key, row, s.cacheTTL)
	return row, nil
}

// VisibleRows returns every visible row without fallback substitution.
func (s *ContentService[T, PT]) VisibleRows(ctx context.Context) ([]T, error) {
	rows, err := s.repo.ListVisible(ctx, 0)
	if err != nil {
		return nil, s.backendError(err, "memuat")
	}
	return rows, nil
}

// Stats returns total and visible row counts.
func (s *ContentService[T, PT]) Stats(ctx context.Context) (*models.ContentStats, error) {
	total, err := s.repo.Count(ctx, false)
	if err != nil {
		return nil, s.backendError(err, "memuat")
	}
	visible, err := s.repo.Count(ctx, true)
	if err != nil {
		return nil, s.backendError(err, "memuat")
	}
	return &models.ContentStats{
		Resource: s.resource.Name,
		Label:    s.resource.Label,
		Total:    total,
		Visible:  visible,
	}, nil
}

func (s *ContentService[T, PT]) load(ctx context.Context, id string) (*T, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.notFound()
		}
		return nil, s.backendError(err, "memuat")
	}
	return row, nil
}

// checkPublish applies the target visibility to a copy of the stored row and
// runs its cross-field checks.
func (s *ContentService[T, PT]) checkPublish(ctx context.Context, id string, desired *bool, now time.Time) error {
	var zero interface{} = PT(new(T))
	if _, ok := zero.(models.Publishable); !ok {
		return nil
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	var entity interface{} = PT(row)
	p := entity.(models.Publishable)
	target := !p.IsPublished()
	if desired != nil {
		target = *desired
	}
	if !target {
		return nil
	}
	p.SetPublished(true)
	if pr, ok := entity.(models.Preparer); ok {
		pr.Prepare(now)
	}
	if c, ok := entity.(models.Checker); ok {
		if err := c.Check(); err != nil {
			return invalid(err, err.Error())
		}
	}
	return nil
}

// prepare normalises and validates row. It performs no writes.
func (s *ContentService[T, PT]) prepare(ctx context.Context, row *T, excludeID string) error {
	var entity interface{} = PT(row)
	if p, ok := entity.(models.Preparer); ok {
		p.Prepare(s.now())
	}
	if err := s.validator.Struct(row); err != nil {
		return s.validationError(err)
	}
	if c, ok := entity.(models.Checker); ok {
		if err := c.Check(); err != nil {
			return invalid(err, err.Error())
		}
	}
	if s.resource.BeforeSave != nil {
		if err := s.resource.BeforeSave(ctx, row); err != nil {
			return err
		}
	}
	for _, field := range s.resource.Unique {
		value := field.Value(row)
		if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
			continue
		}
		exists, err := s.repo.Exists(ctx, field.Column, value, excludeID)
		if err != nil {
			return s.backendError(err, "menyimpan")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, field.Message)
		}
	}
	return nil
}

func (s *ContentService[T, PT]) validationError(err error) error {
	failed := s.validator.FailedFields(err)
	for _, field := range failed {
		for _, required := range s.resource.RequiredFields {
			if field == required {
				return invalid(err, s.resource.RequiredMessage)
			}
		}
	}
	return validationFailure(s.validator, err)
}

func (s *ContentService[T, PT]) saveError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		message := appErrors.ErrConflict.Message
		if len(s.resource.Unique) > 0 {
			message = s.resource.Unique[0].Message
		}
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	}
	return s.backendError(err, "menyimpan")
}

func (s *ContentService[T, PT]) backendError(err error, verb string) error {
	s.logger.Error("content backend failure", zap.String("action", verb), causeField(s.debug, err))
	return appErrors.Internal(err, fmt.Sprintf("Gagal %s %s", verb, s.resource.Label))
}

func (s *ContentService[T, PT]) notFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, capitalize(s.resource.Label)+" tidak ditemukan")
}

func (s *ContentService[T, PT]) fallback(limit int) *PublicListing[T] {
	s.metrics.RecordFallback(s.resource.Name)
	var items []T
	if s.resource.Fallback != nil {
		items = s.resource.Fallback()
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []T{}
	}
	return &PublicListing[T]{Items: items, Fallback: true}
}

func (s *ContentService[T, PT]) afterMutation(ctx context.Context, action string) {
	s.metrics.RecordContentMutation(s.resource.Name, action)
	s.logger.Info("content changed", zap.String("action", action), zap.String("request_id", requestid.FromContext(ctx)))
	s.cache.Invalidate(ctx, PublicPattern(s.resource.Name))
}

func (s *ContentService[T, PT]) cleanup(urls ...string) {
	if s.cleaner == nil || len(urls) == 0 {
		return
	}
	s.cleaner.ScheduleCleanup(urls...)
}

func decodePayload(payload []byte, dest interface{}) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		trimmed = []byte("{}")
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return invalid(err, "Format data tidak valid")
	}
	return nil
}

func imageURLs(row interface{}) []string {
	if owner, ok := row.(models.ImageOwner); ok {
		return owner.ImageURLs()
	}
	return nil
}

func droppedURLs(before, after []string) []string {
	if len(before) == 0 {
		return nil
	}
	kept := make(map[string]struct{}, len(after))
	for _, u := range after {
		kept[u] = struct{}{}
	}
	var dropped []string
	for _, u := range before {
		if _, ok := kept[u]; !ok {
			dropped = append(dropped, u)
		}
	}
	return dropped
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
