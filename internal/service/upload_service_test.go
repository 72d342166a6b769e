package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/jobs"
)

const publicBase = "https://cdn.sekolah.sch.id/storage/public/"

// smallest valid PNG
var pngBytes, _ = base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

type memoryStore struct {
	objects map[string][]byte
	puts    int
	removed []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Put(ctx context.Context, objectPath string, r io.Reader) (int64, error) {
	m.puts++
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.objects[objectPath] = data
	return int64(len(data)), nil
}

func (m *memoryStore) Remove(ctx context.Context, objectPath string) error {
	delete(m.objects, objectPath)
	m.removed = append(m.removed, objectPath)
	return nil
}

func (m *memoryStore) PublicURL(objectPath string) string {
	return publicBase + objectPath
}

func (m *memoryStore) ObjectPath(publicURL string) (string, bool) {
	if !strings.HasPrefix(publicURL, publicBase) {
		return "", false
	}
	return strings.TrimPrefix(publicURL, publicBase), true
}

func newUploadService(store *memoryStore, queue jobs.Enqueuer) *UploadService {
	svc := NewUploadService(store, 5<<20, queue, nil, zap.NewNop())
	svc.randName = func(int) string { return "abc123" }
	return svc
}

func TestUploadRejectsOversizedImage(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(store, nil)
	body := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 6<<20)...)

	_, err := svc.Upload(context.Background(), UploadFile{Filename: "foto.jpg", ContentType: "image/jpeg", Size: int64(len(body)), Reader: bytes.NewReader(body)}, "news")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.Status)
	assert.Equal(t, "Ukuran file maksimal 5MB", appErr.Message)
	assert.Zero(t, store.puts)
}

func TestUploadRejectsUnderstatedSize(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(store, nil)
	body := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 6<<20)...)

	_, err := svc.Upload(context.Background(), UploadFile{Filename: "foto.png", ContentType: "image/png", Size: 100, Reader: bytes.NewReader(body)}, "news")
	require.Error(t, err)
	assert.Equal(t, "Ukuran file maksimal 5MB", appErrors.FromError(err).Message)
	assert.Empty(t, store.objects)
	assert.Equal(t, []string{"news/abc123.png"}, store.removed)
}

func TestUploadRejectsNonImage(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(store, nil)

	_, err := svc.Upload(context.Background(), UploadFile{Filename: "doc.pdf", ContentType: "application/pdf", Size: 10, Reader: strings.NewReader("%PDF-1.4")}, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusUnsupportedMediaType, appErr.Status)
	assert.Equal(t, "File harus berupa gambar", appErr.Message)

	_, err = svc.Upload(context.Background(), UploadFile{Filename: "fake.png", ContentType: "image/png", Size: 12, Reader: strings.NewReader("hello, world")}, "")
	require.Error(t, err)
	assert.Equal(t, "File harus berupa gambar", appErrors.FromError(err).Message)
	assert.Zero(t, store.puts)
}

func TestUploadRejectsSVG(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(store, nil)
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`

	_, err := svc.Upload(context.Background(), UploadFile{Filename: "logo.svg", ContentType: "image/svg+xml", Size: int64(len(svg)), Reader: strings.NewReader(svg)}, "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusUnsupportedMediaType, appErr.Status)
	assert.Equal(t, "File harus berupa gambar", appErr.Message)

	// declared as PNG, sniffed as SVG
	_, err = svc.Upload(context.Background(), UploadFile{Filename: "logo.png", ContentType: "image/png", Size: int64(len(svg)), Reader: strings.NewReader(svg)}, "")
	require.Error(t, err)
	assert.Equal(t, "File harus berupa gambar", appErrors.FromError(err).Message)
	assert.Zero(t, store.puts)
}

func TestUploadStoresImage(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(store, nil)

	res, err := svc.Upload(context.Background(), UploadFile{Filename: "Foto Kegiatan.PNG", ContentType: "image/png", Size: int64(len(pngBytes)), Reader: bytes.NewReader(pngBytes)}, "Galeri Foto")
	require.NoError(t, err)
	assert.Equal(t, "galeri-foto/abc123.png", res.Path)
	assert.Equal(t, publicBase+"galeri-foto/abc123.png", res.URL)
	assert.Equal(t, "image/png", res.MimeType)
	assert.Equal(t, pngBytes, store.objects[res.Path])
}

func TestUploadDefaultFolder(t *testing.T) {
	store := newMemoryStore()
	svc := newUploadService(store, nil)

	res, err := svc.Upload(context.Background(), UploadFile{ContentType: "image/png", Reader: bytes.NewReader(pngBytes)}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "images/abc123.png", res.Path)
}

func TestUploadUseURL(t *testing.T) {
	svc := newUploadService(newMemoryStore(), nil)

	res, err := svc.UseURL(" https://example.com/foto.jpg ")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/foto.jpg", res.URL)

	for _, raw := range []string{"", "foto.jpg", "ftp://example.com/a.jpg", "javascript:alert(1)"} {
		_, err := svc.UseURL(raw)
		require.Error(t, err, raw)
		assert.Equal(t, "URL gambar tidak valid", appErrors.FromError(err).Message)
	}
}

func TestUploadScheduleCleanup(t *testing.T) {
	store := newMemoryStore()
	store.objects["news/old.png"] = pngBytes
	queue := &recordingQueue{}
	svc := newUploadService(store, queue)

	svc.ScheduleCleanup(publicBase+"news/old.png", "https://example.com/external.jpg")
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobUploadCleanup, queue.jobs[0].Type)

	require.NoError(t, svc.CleanupHandler()(context.Background(), queue.jobs[0]))
	assert.NotContains(t, store.objects, "news/old.png")
}

type urlReferences struct {
	used  map[string]bool
	err   error
	calls []string
}

func (r *urlReferences) IsReferenced(ctx context.Context, url string) (bool, error) {
	r.calls = append(r.calls, url)
	return r.used[url], r.err
}

func TestUploadCleanupKeepsSharedImage(t *testing.T) {
	store := newMemoryStore()
	store.objects["news/shared.png"] = pngBytes
	queue := &recordingQueue{}
	refs := &urlReferences{used: map[string]bool{publicBase + "news/shared.png": true}}
	svc := newUploadService(store, queue).WithReferenceChecker(refs)

	svc.ScheduleCleanup(publicBase + "news/shared.png")
	require.Len(t, queue.jobs, 1)
	require.NoError(t, svc.CleanupHandler()(context.Background(), queue.jobs[0]))

	assert.Contains(t, store.objects, "news/shared.png")
	assert.Empty(t, store.removed)
	assert.Equal(t, []string{publicBase + "news/shared.png"}, refs.calls)
}

func TestUploadCleanupRemovesUnreferencedImage(t *testing.T) {
	store := newMemoryStore()
	store.objects["news/old.png"] = pngBytes
	queue := &recordingQueue{}
	svc := newUploadService(store, queue).WithReferenceChecker(&urlReferences{})

	svc.ScheduleCleanup(publicBase + "news/old.png")
	require.NoError(t, svc.CleanupHandler()(context.Background(), queue.jobs[0]))

	assert.NotContains(t, store.objects, "news/old.png")
}

func TestUploadCleanupRetriesWhenLookupFails(t *testing.T) {
	store := newMemoryStore()
	store.objects["news/old.png"] = pngBytes
	queue := &recordingQueue{}
	svc := newUploadService(store, queue).WithReferenceChecker(&urlReferences{err: errors.New("connection reset")})

	svc.ScheduleCleanup(publicBase + "news/old.png")
	require.Error(t, svc.CleanupHandler()(context.Background(), queue.jobs[0]))

	assert.Contains(t, store.objects, "news/old.png")
}
