// Package blobstore keeps the original bytes of uploaded documents in a gocloud bucket.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

var ErrBlobNotFound = errors.New("blob not found")

// Bucket stores original uploads.
// Keys are slash separated, e.g. "documents/2024/05/<uuid>.pdf".
type Bucket struct {
	bucket *blob.Bucket
}

// NewFileSystem opens a bucket backed by a local directory, creating it if needed.
func NewFileSystem(root string) (*Bucket, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root %s failed: %w", root, err)
	}
	b, err := fileblob.OpenBucket(abs, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, fmt.Errorf("open blob root %s failed: %w", root, err)
	}
	return &Bucket{bucket: b}, nil
}

// Open opens a bucket from a gocloud URL such as "file:///var/lib/kb" or "mem://".
func Open(ctx context.Context, url string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open blob bucket %s failed: %w", url, err)
	}
	return &Bucket{bucket: b}, nil
}

func (s *Bucket) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	key := path.Join("documents", time.Now().Format("2006/01"), uuid.NewString()+ext)

	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("write blob failed: %w", err)
	}
	return key, nil
}

func (s *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: invalid key %q", ErrBlobNotFound, key)
	}
	data, err := s.bucket.ReadAll(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob failed: %w", err)
	}
	return data, nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *Bucket) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return nil
	}
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("delete blob failed: %w", err)
	}
	return nil
}

func (s *Bucket) Close() error {
	return s.bucket.Close()
}

// validKey accepts only keys in the form Put hands out.
func validKey(key string) bool {
	return key != "" && path.Clean(key) == key && fs.ValidPath(key)
}
