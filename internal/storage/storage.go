package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrObjectNotFound is returned by Stat when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Stat reports whether the object exists; it returns ErrObjectNotFound
	// for a missing key and the transport error otherwise.
	Stat(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	// PresignedURL returns a time-limited URL granting direct read access
	// to one object.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Bucket() string
}

// DeleteStatus classifies the outcome of removing an object.
type DeleteStatus int

const (
	// ObjectDeleted means the object existed and was removed.
	ObjectDeleted DeleteStatus = iota
	// ObjectMissing means there was nothing to remove.
	ObjectMissing
	// StoreUnreachable means the store could not be reached or refused
	// the operation; the object may or may not still exist.
	StoreUnreachable
)

func (s DeleteStatus) String() string {
	switch s {
	case ObjectDeleted:
		return "deleted"
	case ObjectMissing:
		return "missing"
	case StoreUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// DeleteResult carries the delete outcome; Err is set only for
// StoreUnreachable.
type DeleteResult struct {
	Status DeleteStatus
	Err    error
}

// Storage wraps an ObjectStorage backend with the media upload pipeline.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// NewObjectName generates a fresh object name for an upload: a random
// unique identifier carrying the original file's extension. The original
// filename never reaches object storage.
func NewObjectName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return uuid.NewString() + ext
}

// UploadFile uploads a local file under a freshly generated object name
// and returns that name. The caller owns the local file and its cleanup.
func (s *Storage) UploadFile(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat upload: %w", err)
	}

	key := NewObjectName(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.backend.Put(ctx, key, f, info.Size(), contentType); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// Get opens a reader for an object in the configured bucket.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Remove deletes an object and classifies the outcome so callers can log
// it instead of silently swallowing failures.
func (s *Storage) Remove(ctx context.Context, key string) DeleteResult {
	if err := s.backend.Stat(ctx, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return DeleteResult{Status: ObjectMissing}
		}
		return DeleteResult{Status: StoreUnreachable, Err: err}
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return DeleteResult{Status: StoreUnreachable, Err: err}
	}
	return DeleteResult{Status: ObjectDeleted}
}

// PresignedURL returns a time-limited direct URL for one object.
func (s *Storage) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.backend.PresignedURL(ctx, key, ttl)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}
