// Package storage keeps generated artifacts (entry exports) in an object
// store. Each adapter is bound to a single bucket at construction.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrMissingSigner indicates signed URL support is not configured.
var ErrMissingSigner = errors.New("storage: signed url signer not configured")

// Storage defines the object operations the application needs.
type Storage interface {
	io.Closer

	// Put stores r under key.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	// List returns up to limit objects whose key starts with prefix. A
	// non-positive limit means no cap.
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)
	// Delete removes key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time limited download URL for key.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// PutOptions configures an upload.
type PutOptions struct {
	// Size is the content length; -1 or 0 when unknown.
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ETag        string    `json:"etag,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
