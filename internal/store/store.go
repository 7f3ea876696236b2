package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("secret not found")
	ErrEmptyPayload = errors.New("secret payload is empty")
	ErrTooLarge     = errors.New("secret too large for storage limit")
)

// Stats reports vault usage counters.
type Stats struct {
	MemoryUsed  int64 `json:"memory_used"`
	MemoryLimit int64 `json:"memory_limit"`
	Created     int64 `json:"secrets_created"`
	Retrieved   int64 `json:"secrets_retrieved"`
	Expired     int64 `json:"secrets_expired"`
	Evicted     int64 `json:"secrets_evicted"`
}

// Store is the vault: exactly-once custody of opaque payloads.
type Store interface {
	// Put stores the payload and returns a freshly generated id.
	// Callers never choose ids.
	Put(ctx context.Context, payload []byte) (string, error)
	// Take returns the payload for id and removes it in the same
	// indivisible step. At most one Take per id ever succeeds; all
	// other outcomes (unknown, consumed, expired, evicted) are
	// ErrNotFound.
	Take(ctx context.Context, id string) ([]byte, error)
	// Stats returns usage counters.
	Stats() Stats
}
