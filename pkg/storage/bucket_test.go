package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketPutAndPublicURL(t *testing.T) {
	root := t.TempDir()
	bucket, err := NewBucket(root, "school-images", "https://sekolah.sch.id/")
	require.NoError(t, err)

	n, err := bucket.Put(context.Background(), "news/abc.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.True(t, bucket.Exists("news/abc.jpg"))

	data, err := os.ReadFile(filepath.Join(root, "school-images", "news", "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	url := bucket.PublicURL("news/abc.jpg")
	assert.Equal(t, "https://sekolah.sch.id/storage/school-images/news/abc.jpg", url)

	objectPath, ok := bucket.ObjectPath(url)
	require.True(t, ok)
	assert.Equal(t, "news/abc.jpg", objectPath)

	require.NoError(t, bucket.Remove(context.Background(), objectPath))
	assert.False(t, bucket.Exists(objectPath))
	require.NoError(t, bucket.Remove(context.Background(), objectPath))
}

func TestBucketRejectsTraversal(t *testing.T) {
	bucket, err := NewBucket(t.TempDir(), "school-images", "https://sekolah.sch.id")
	require.NoError(t, err)

	_, err = bucket.Put(context.Background(), "../escape.jpg", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidObjectPath)

	_, ok := bucket.ObjectPath("https://sekolah.sch.id/storage/school-images/../secret")
	assert.False(t, ok)
}

func TestBucketObjectPathForeignURL(t *testing.T) {
	bucket, err := NewBucket(t.TempDir(), "school-images", "https://sekolah.sch.id")
	require.NoError(t, err)

	_, ok := bucket.ObjectPath("https://images.example.com/storage/school-images/news/a.jpg")
	assert.False(t, ok)
	_, ok = bucket.ObjectPath("https://sekolah.sch.id/storage/other-bucket/a.jpg")
	assert.False(t, ok)
}
