// Package store provides the key-value storage used for favorites and the
// session-scoped GraphQL response cache.
package store

import "errors"

// Common errors
var (
	// ErrQuotaExceeded indicates a write would push the store past its byte quota
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrNotOpen indicates the database has not been opened (or was closed)
	ErrNotOpen = errors.New("database not open")
)

// KV is an opaque string-keyed blob store.
//
// Keys iterate in insertion order: Keys returns the oldest entry first. A
// value overwritten in place keeps its original position.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}

// StatsReporter is implemented by stores that can report their usage.
type StatsReporter interface {
	GetStats() (*Stats, error)
}

// Stats describes the current contents of a store.
type Stats struct {
	Entries    int   `json:"entries"`
	Bytes      int64 `json:"bytes"`
	QuotaBytes int64 `json:"quotaBytes"`
}
