// Package docstore persists the tracker's state as JSON documents under a
// handful of string keys. Backends are interchangeable: SQLite (default),
// Redis, a directory of JSON files, and memory.
package docstore

import (
	"context"
	"encoding/json"
)

// Document keys used by the tracker.
const (
	KeyGoals          = "goals"
	KeyLifetimePoints = "lifetimePoints"
	KeyRewards        = "rewards"
)

// Store is a string-keyed JSON document store.
type Store interface {
	// Get returns the document stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// Set replaces the document stored under key.
	Set(ctx context.Context, key string, value json.RawMessage) error
	Close() error
}

// Backend names accepted by configuration.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Backends lists every supported backend name.
var Backends = []string{BackendSQLite, BackendRedis, BackendFile, BackendMemory}
