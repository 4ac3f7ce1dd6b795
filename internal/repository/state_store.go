package repository

import (
	"context"
	"errors"
	"time"
)

// ErrStateNotFound is returned by StateStore.Get for missing or expired keys.
var ErrStateNotFound = errors.New("state not found")

// StateStore abstracts short-lived key-value state shared between requests,
// such as the mail provider's cached access token.
// Implementations: Redis (several replicas) or in-memory (single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
