package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/internal/repository"
	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/validation"
)

type mockNewsRepo struct {
	items       map[string]*models.NewsPost
	slugs       map[string]string
	creates     int
	updates     int
	listVisible []models.NewsPost
	visibleErr  error
	createErr   error
}

func newMockNewsRepo() *mockNewsRepo {
	return &mockNewsRepo{items: map[string]*models.NewsPost{}, slugs: map[string]string{}}
}

func (m *mockNewsRepo) List(ctx context.Context, filter models.ListFilter) ([]models.NewsPost, int, error) {
	out := make([]models.NewsPost, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *mockNewsRepo) ListVisible(ctx context.Context, limit int) ([]models.NewsPost, error) {
	if m.visibleErr != nil {
		return nil, m.visibleErr
	}
	return m.listVisible, nil
}

func (m *mockNewsRepo) FindByID(ctx context.Context, id string) (*models.NewsPost, error) {
	if item, ok := m.items[id]; ok {
		cp := *item
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNewsRepo) FindVisibleBy(ctx context.Context, column string, value interface{}) (*models.NewsPost, error) {
	for _, item := range m.items {
		if item.Slug == value && item.Published {
			cp := *item
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockNewsRepo) Exists(ctx context.Context, column string, value interface{}, excludeID string) (bool, error) {
	owner, ok := m.slugs[fmt.Sprint(value)]
	return ok && owner != excludeID, nil
}

func (m *mockNewsRepo) Create(ctx context.Context, row *models.NewsPost) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	row.ID = fmt.Sprintf("news-%d", m.creates)
	row.Touch(time.Now())
	cp := *row
	m.items[row.ID] = &cp
	m.slugs[row.Slug] = row.ID
	return nil
}

func (m *mockNewsRepo) Update(ctx context.Context, row *models.NewsPost) error {
	if _, ok := m.items[row.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updates++
	cp := *row
	m.items[row.ID] = &cp
	m.slugs[row.Slug] = row.ID
	return nil
}

func (m *mockNewsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockNewsRepo) ToggleVisibility(ctx context.Context, id string, now time.Time) (*models.NewsPost, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	item.Published = !item.Published
	if item.Published {
		ts := now
		item.PublishedAt = &ts
	} else {
		item.PublishedAt = nil
	}
	cp := *item
	return &cp, nil
}

func (m *mockNewsRepo) SetVisibility(ctx context.Context, id string, visible bool, now time.Time) (*models.NewsPost, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if item.Published != visible {
		return m.ToggleVisibility(ctx, id, now)
	}
	cp := *item
	return &cp, nil
}

func (m *mockNewsRepo) Count(ctx context.Context, visibleOnly bool) (int, error) {
	total := 0
	for _, item := range m.items {
		if !visibleOnly || item.Published {
			total++
		}
	}
	return total, nil
}

type fakeCacheRepo struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{values: map[string][]byte{}}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.values {
		if strings.HasPrefix(key, prefix) {
			delete(f.values, key)
		}
	}
	return nil
}

type recordingCleaner struct {
	urls []string
}

func (r *recordingCleaner) ScheduleCleanup(urls ...string) {
	r.urls = append(r.urls, urls...)
}

var fixedNow = time.Date(2024, time.August, 17, 8, 0, 0, 0, time.UTC)

func newNewsService(repo *mockNewsRepo, cache *fakeCacheRepo, cleaner ImageCleaner) *ContentService[models.NewsPost, *models.NewsPost] {
	return NewContentService[models.NewsPost](NewsResource(), repo, validation.New(), zap.NewNop(), ContentOptions{
		Cache:   NewCacheService(cache, nil, time.Minute, zap.NewNop(), true),
		Cleaner: cleaner,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestContentServiceCreateMissingContent(t *testing.T) {
	repo := newMockNewsRepo()
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	_, err := svc.Create(context.Background(), []byte(`{"title":"Prestasi Terbaru"}`))
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Judul dan konten harus diisi", appErr.Message)
	assert.Zero(t, repo.creates)
}

func TestContentServiceCreateDerivesFields(t *testing.T) {
	repo := newMockNewsRepo()
	cache := newFakeCacheRepo()
	svc := newNewsService(repo, cache, nil)

	post, err := svc.Create(context.Background(), []byte(`{"id":"forged","title":"Prestasi Terbaru","content":"Tim robotik juara nasional.","published":true}`))
	require.NoError(t, err)
	assert.Equal(t, "news-1", post.ID)
	assert.Equal(t, "prestasi-terbaru", post.Slug)
	assert.Equal(t, "umum", post.Category)
	assert.Equal(t, "Tim robotik juara nasional.", post.Excerpt)
	require.NotNil(t, post.PublishedAt)
	assert.Equal(t, fixedNow, *post.PublishedAt)
	assert.Contains(t, cache.invalidated, "public:news:*")
}

func TestContentServiceCreateDuplicateSlug(t *testing.T) {
	repo := newMockNewsRepo()
	repo.slugs["prestasi-terbaru"] = "existing"
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	_, err := svc.Create(context.Background(), []byte(`{"title":"Prestasi Terbaru","content":"isi"}`))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Slug sudah digunakan", appErr.Message)
	assert.Zero(t, repo.creates)
}

func TestContentServiceCreateBackendFailure(t *testing.T) {
	repo := newMockNewsRepo()
	repo.createErr = errors.New("connection reset")
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	_, err := svc.Create(context.Background(), []byte(`{"title":"Judul","content":"isi"}`))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
	assert.Equal(t, "Gagal menyimpan berita", appErr.Message)
}

func TestContentServiceCreateUniqueViolationFromDatabase(t *testing.T) {
	repo := newMockNewsRepo()
	repo.createErr = fmt.Errorf("create news_posts: %w", repository.ErrDuplicate)
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	_, err := svc.Create(context.Background(), []byte(`{"title":"Judul","content":"isi"}`))
	require.Error(t, err)
	assert.Equal(t, "Slug sudah digunakan", appErrors.FromError(err).Message)
}

func TestContentServiceUpdateMergesPatch(t *testing.T) {
	repo := newMockNewsRepo()
	created := fixedNow.Add(-time.Hour)
	repo.items["n1"] = &models.NewsPost{
		Base:     models.Base{ID: "n1", CreatedAt: created},
		Title:    "Lama",
		Slug:     "lama",
		Content:  "Konten lama",
		Excerpt:  "Ringkasan",
		Category: "prestasi",
		ImageURL: "http://localhost:8080/storage/public/news/old.jpg",
	}
	cleaner := &recordingCleaner{}
	svc := newNewsService(repo, newFakeCacheRepo(), cleaner)

	post, err := svc.Update(context.Background(), "n1", []byte(`{"title":"Baru","created_at":"2000-01-01T00:00:00Z","image_url":"http://localhost:8080/storage/public/news/new.jpg"}`))
	require.NoError(t, err)
	assert.Equal(t, "Baru", post.Title)
	assert.Equal(t, "Konten lama", post.Content)
	assert.Equal(t, "prestasi", post.Category)
	assert.Equal(t, "lama", post.Slug)
	assert.Equal(t, created, post.CreatedAt)
	assert.Equal(t, []string{"http://localhost:8080/storage/public/news/old.jpg"}, cleaner.urls)
}

func TestContentServiceUpdateClearedContentRejected(t *testing.T) {
	repo := newMockNewsRepo()
	repo.items["n1"] = &models.NewsPost{Base: models.Base{ID: "n1"}, Title: "Judul", Slug: "judul", Content: "isi"}
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	_, err := svc.Update(context.Background(), "n1", []byte(`{"content":"   "}`))
	require.Error(t, err)
	assert.Equal(t, "Judul dan konten harus diisi", appErrors.FromError(err).Message)
	assert.Zero(t, repo.updates)
}

func TestContentServiceUpdateMissing(t *testing.T) {
	svc := newNewsService(newMockNewsRepo(), newFakeCacheRepo(), nil)

	_, err := svc.Update(context.Background(), "nope", []byte(`{"title":"x"}`))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "Berita tidak ditemukan", appErr.Message)
}

func TestContentServiceDeleteSchedulesCleanup(t *testing.T) {
	repo := newMockNewsRepo()
	repo.items["n1"] = &models.NewsPost{Base: models.Base{ID: "n1"}, Title: "Judul", ImageURL: "http://localhost:8080/storage/public/news/a.jpg"}
	cleaner := &recordingCleaner{}
	cache := newFakeCacheRepo()
	svc := newNewsService(repo, cache, cleaner)

	require.NoError(t, svc.Delete(context.Background(), "n1"))
	assert.Empty(t, repo.items)
	assert.Equal(t, []string{"http://localhost:8080/storage/public/news/a.jpg"}, cleaner.urls)
	assert.Contains(t, cache.invalidated, "public:news:*")

	err := svc.Delete(context.Background(), "n1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestContentServiceToggleTwice(t *testing.T) {
	repo := newMockNewsRepo()
	repo.items["n1"] = &models.NewsPost{Base: models.Base{ID: "n1"}, Title: "Draf", Content: "isi"}
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	first, err := svc.TogglePublish(context.Background(), "n1", nil)
	require.NoError(t, err)
	assert.True(t, first.Published)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, fixedNow, *first.PublishedAt)

	second, err := svc.TogglePublish(context.Background(), "n1", nil)
	require.NoError(t, err)
	assert.False(t, second.Published)
	assert.Nil(t, second.PublishedAt)
}

func TestContentServicePublicListFallback(t *testing.T) {
	repo := newMockNewsRepo()
	cache := newFakeCacheRepo()
	svc := newNewsService(repo, cache, nil)

	listing, err := svc.PublicList(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, listing.Fallback)
	assert.Len(t, listing.Items, 2)

	repo.visibleErr = errors.New("timeout")
	cache.values = map[string][]byte{}
	listing, err = svc.PublicList(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, listing.Fallback)
	assert.Len(t, listing.Items, len(defaultNews()))
}

func TestContentServicePublicListCachedUntilMutation(t *testing.T) {
	repo := newMockNewsRepo()
	repo.listVisible = []models.NewsPost{{Base: models.Base{ID: "n1"}, Title: "Satu", Published: true}}
	cache := newFakeCacheRepo()
	svc := newNewsService(repo, cache, nil)

	listing, err := svc.PublicList(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, listing.Fallback)
	require.Len(t, listing.Items, 1)

	repo.listVisible = append(repo.listVisible, models.NewsPost{Base: models.Base{ID: "n2"}, Title: "Dua", Published: true})
	listing, err = svc.PublicList(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, listing.Items, 1)

	_, err = svc.Create(context.Background(), []byte(`{"title":"Tiga","content":"isi"}`))
	require.NoError(t, err)
	listing, err = svc.PublicList(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, listing.Items, 2)
}

func TestContentServiceStats(t *testing.T) {
	repo := newMockNewsRepo()
	repo.items["a"] = &models.NewsPost{Base: models.Base{ID: "a"}, Published: true}
	repo.items["b"] = &models.NewsPost{Base: models.Base{ID: "b"}}
	svc := newNewsService(repo, newFakeCacheRepo(), nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResourceNews, stats.Resource)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Visible)
}

func TestCalendarEndBeforeStartRejected(t *testing.T) {
	v := validation.New()
	v.RegisterValuer(models.Date{})
	repo := &stubCalendarRepo{}
	svc := NewContentService[models.CalendarEvent](CalendarResource(), repo, v, zap.NewNop(), ContentOptions{})

	_, err := svc.Create(context.Background(), []byte(`{"title":"Ujian"}`))
	require.Error(t, err)
	assert.Equal(t, "Judul dan tanggal mulai harus diisi", appErrors.FromError(err).Message)

	_, err = svc.Create(context.Background(), []byte(`{"title":"Ujian","start_date":"2024-09-23","end_date":"2024-09-20"}`))
	require.Error(t, err)
	assert.Equal(t, "Tanggal selesai tidak boleh sebelum tanggal mulai", appErrors.FromError(err).Message)
	assert.Zero(t, repo.creates)
}

type stubCalendarRepo struct {
	ContentRepository[models.CalendarEvent]
	creates int
}

func (s *stubCalendarRepo) Create(ctx context.Context, row *models.CalendarEvent) error {
	s.creates++
	return nil
}

type referenceFunc func(ctx context.Context, url string) (bool, error)

func (f referenceFunc) IsReferenced(ctx context.Context, url string) (bool, error) {
	return f(ctx, url)
}

func TestContentServiceDeleteKeepsImageSharedWithAnotherRow(t *testing.T) {
	shared := publicBase + "news/shared.png"
	repo := newMockNewsRepo()
	repo.items["a"] = &models.NewsPost{Base: models.Base{ID: "a"}, Title: "A", Content: "isi", ImageURL: shared}
	repo.items["b"] = &models.NewsPost{Base: models.Base{ID: "b"}, Title: "B", Content: "isi", ImageURL: shared}

	store := newMemoryStore()
	store.objects["news/shared.png"] = pngBytes
	queue := &recordingQueue{}
	uploads := newUploadService(store, queue).WithReferenceChecker(referenceFunc(func(ctx context.Context, url string) (bool, error) {
		for _, item := range repo.items {
			if item.ImageURL == url {
				return true, nil
			}
		}
		return false, nil
	}))
	svc := newNewsService(repo, newFakeCacheRepo(), uploads)

	require.NoError(t, svc.Delete(context.Background(), "a"))
	require.Len(t, queue.jobs, 1)
	require.NoError(t, uploads.CleanupHandler()(context.Background(), queue.jobs[0]))
	assert.Contains(t, store.objects, "news/shared.png")

	require.NoError(t, svc.Delete(context.Background(), "b"))
	require.Len(t, queue.jobs, 2)
	require.NoError(t, uploads.CleanupHandler()(context.Background(), queue.jobs[1]))
	assert.NotContains(t, store.objects, "news/shared.png")
}

type stubAnnouncementRepo struct {
	ContentRepository[models.Announcement]
	row     models.Announcement
	toggles int
	sets    int
}

func (s *stubAnnouncementRepo) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	if id != s.row.ID {
		return nil, sql.ErrNoRows
	}
	cp := s.row
	return &cp, nil
}

func (s *stubAnnouncementRepo) ToggleVisibility(ctx context.Context, id string, now time.Time) (*models.Announcement, error) {
	s.toggles++
	s.row.Published = !s.row.Published
	cp := s.row
	return &cp, nil
}

func (s *stubAnnouncementRepo) SetVisibility(ctx context.Context, id string, published bool, now time.Time) (*models.Announcement, error) {
	s.sets++
	s.row.Published = published
	cp := s.row
	return &cp, nil
}

func newAnnouncementService(repo *stubAnnouncementRepo) *ContentService[models.Announcement, *models.Announcement] {
	return NewContentService[models.Announcement](AnnouncementResource(), repo, validation.New(), zap.NewNop(), ContentOptions{
		Now: func() time.Time { return fixedNow },
	})
}

func TestTogglePublishRejectsExpiredDraft(t *testing.T) {
	expired := fixedNow.Add(-24 * time.Hour)
	repo := &stubAnnouncementRepo{row: models.Announcement{Base: models.Base{ID: "ann-1"}, Title: "Libur", Content: "isi", ExpiresAt: &expired}}
	svc := newAnnouncementService(repo)

	_, err := svc.TogglePublish(context.Background(), "ann-1", nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Tanggal kedaluwarsa harus setelah tanggal terbit", appErr.Message)

	published := true
	_, err = svc.TogglePublish(context.Background(), "ann-1", &published)
	require.Error(t, err)
	assert.Zero(t, repo.toggles)
	assert.Zero(t, repo.sets)
	assert.False(t, repo.row.Published)
}

func TestTogglePublishAllowsUnpublishingExpiredAnnouncement(t *testing.T) {
	expired := fixedNow.Add(-24 * time.Hour)
	publishedAt := fixedNow.Add(-48 * time.Hour)
	repo := &stubAnnouncementRepo{row: models.Announcement{Base: models.Base{ID: "ann-1"}, Title: "Libur", Content: "isi", Published: true, PublishedAt: &publishedAt, ExpiresAt: &expired}}
	svc := newAnnouncementService(repo)

	row, err := svc.TogglePublish(context.Background(), "ann-1", nil)
	require.NoError(t, err)
	assert.False(t, row.Published)
	assert.Equal(t, 1, repo.toggles)
}

func TestTogglePublishAcceptsFutureExpiry(t *testing.T) {
	expires := fixedNow.Add(7 * 24 * time.Hour)
	repo := &stubAnnouncementRepo{row: models.Announcement{Base: models.Base{ID: "ann-1"}, Title: "Libur", Content: "isi", ExpiresAt: &expires}}
	svc := newAnnouncementService(repo)

	row, err := svc.TogglePublish(context.Background(), "ann-1", nil)
	require.NoError(t, err)
	assert.True(t, row.Published)
	assert.Equal(t, 1, repo.toggles)
}

func TestTogglePublishMissingAnnouncement(t *testing.T) {
	repo := &stubAnnouncementRepo{row: models.Announcement{Base: models.Base{ID: "ann-1"}}}
	svc := newAnnouncementService(repo)

	_, err := svc.TogglePublish(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
