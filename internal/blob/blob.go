package blob

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get when the object does not exist.
var ErrKeyNotFound = errors.New("blob: key not found")

// Store is the object-store surface the rest of the service depends on.
// The production implementation is S3; tests use MemoryStore.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
