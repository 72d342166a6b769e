package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidObjectPath is returned for object paths escaping the bucket.
var ErrInvalidObjectPath = errors.New("invalid object path")

// PublicPrefix is the URL path under which buckets are served.
const PublicPrefix = "/storage"

// Bucket persists objects on disk under root/name and resolves public URLs for them.
type Bucket struct {
	root          string
	name          string
	publicBaseURL string
}

// NewBucket ensures the bucket directory exists and returns a handle.
func NewBucket(root, name, publicBaseURL string) (*Bucket, error) {
	if root == "" {
		root = "./storage"
	}
	if name == "" {
		return nil, fmt.Errorf("bucket name required")
	}
	b := &Bucket{root: root, name: name, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
	if err := os.MkdirAll(b.Dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	return b, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Dir returns the directory that holds the bucket objects.
func (b *Bucket) Dir() string {
	return filepath.Join(b.root, b.name)
}

// Put streams r into objectPath and returns the number of bytes written.
func (b *Bucket) Put(ctx context.Context, objectPath string, r io.Reader) (int64, error) {
	target, err := b.resolve(objectPath)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create object: %w", err)
	}
	written, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(target)
		return 0, fmt.Errorf("write object: %w", copyErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("close object: %w", closeErr)
	}
	return written, nil
}

// Remove deletes objectPath if present.
func (b *Bucket) Remove(ctx context.Context, objectPath string) error {
	target, err := b.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Exists reports whether objectPath is stored.
func (b *Bucket) Exists(objectPath string) bool {
	target, err := b.resolve(objectPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(target)
	return err == nil
}

// PublicURL returns the absolute URL serving objectPath.
func (b *Bucket) PublicURL(objectPath string) string {
	return b.publicBaseURL + b.publicPrefix() + strings.TrimLeft(path.Clean("/"+objectPath), "/")
}

// ObjectPath extracts the object path from a URL previously returned by PublicURL.
// The second result is false for URLs that belong to another host or bucket.
func (b *Bucket) ObjectPath(publicURL string) (string, bool) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", false
	}
	base, err := url.Parse(b.publicBaseURL)
	if err != nil {
		return "", false
	}
	if u.IsAbs() && !strings.EqualFold(u.Host, base.Host) {
		return "", false
	}
	prefix := strings.TrimRight(base.Path, "/") + b.publicPrefix()
	if !strings.HasPrefix(u.Path, prefix) {
		return "", false
	}
	objectPath := strings.TrimPrefix(u.Path, prefix)
	if _, err := b.resolve(objectPath); err != nil || objectPath == "" {
		return "", false
	}
	return objectPath, true
}

func (b *Bucket) publicPrefix() string {
	return PublicPrefix + "/" + b.name + "/"
}

func (b *Bucket) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(objectPath))
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", ErrInvalidObjectPath
	}
	return filepath.Join(b.Dir(), filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
