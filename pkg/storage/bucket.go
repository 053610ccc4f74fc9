package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Bucket names
const (
	DocumentsBucket     = "documents"
	WorkshopFilesBucket = "workshop-files"
)

var (
	// ErrInvalidKey is returned for empty, absolute or traversing object keys
	ErrInvalidKey = errors.New("invalid object key")

	// ErrObjectNotFound is returned when no object is stored under a key
	ErrObjectNotFound = errors.New("object not found")

	// ErrTooLarge is returned by Put when the object exceeds the bucket limit
	ErrTooLarge = errors.New("object too large")
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Key  string
	Size int64
}

// Bucket is a private object container rooted in a directory of an afero.Fs
type Bucket struct {
	name    string
	fs      afero.Fs
	maxSize int64
}

// NewBucket creates a bucket stored under root/name on fs.
// maxSize <= 0 disables the size limit.
func NewBucket(fs afero.Fs, root, name string, maxSize int64) (*Bucket, error) {
	dir := filepath.Join(root, name)
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create bucket %q: %w", name, err)
	}
	return &Bucket{
		name:    name,
		fs:      afero.NewBasePathFs(fs, dir),
		maxSize: maxSize,
	}, nil
}

// Name returns the bucket name
func (b *Bucket) Name() string {
	return b.name
}

// Put stores r under key and returns the number of bytes written.
// A partially written object is removed on failure.
func (b *Bucket) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return 0, err
	}

	if err := b.fs.MkdirAll(path.Dir(clean), 0o750); err != nil {
		return 0, err
	}

	f, err := b.fs.OpenFile(clean, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return 0, err
	}

	src := r
	if b.maxSize > 0 {
		src = io.LimitReader(r, b.maxSize+1)
	}

	n, err := io.Copy(f, &contextReader{ctx: ctx, r: src})
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && b.maxSize > 0 && n > b.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = b.fs.Remove(clean)
		return 0, err
	}
	return n, nil
}

// Open returns a reader for the object stored under key
func (b *Bucket) Open(key string) (afero.File, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := b.fs.Open(clean)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

// Stat describes the object stored under key
func (b *Bucket) Stat(key string) (*ObjectInfo, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	fi, err := b.fs.Stat(clean)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, ErrObjectNotFound
	}
	return &ObjectInfo{Key: clean, Size: fi.Size()}, nil
}

// Delete removes the object stored under key. Deleting a missing object is not an error.
func (b *Bucket) Delete(key string) error {
	clean, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := b.fs.Remove(clean); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CleanKey normalizes an object key and rejects keys escaping the bucket
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", ErrInvalidKey
		}
	}
	clean := path.Clean(key)
	if clean == "." {
		return "", ErrInvalidKey
	}
	return clean, nil
}

// NewObjectKey builds a unique key of the form <prefix>/<uuid>/<sanitized file name>
func NewObjectKey(prefix, fileName string) string {
	name := SanitizeFileName(fileName)
	if prefix == "" {
		return uuid.NewString() + "/" + name
	}
	return strings.Trim(prefix, "/") + "/" + uuid.NewString() + "/" + name
}

// SanitizeFileName keeps the base name of an uploaded file with unsafe characters replaced
func SanitizeFileName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		}
		return -1
	}, name)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "file"
	}
	return name
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
