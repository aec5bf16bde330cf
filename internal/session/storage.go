package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Storage.Get when the key is absent.
var ErrNotFound = errors.New("session: key not found")

// Storage is durable client-side key/value persistence. Implementations must be
// safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
