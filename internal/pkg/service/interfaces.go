package service

import (
	"errors"
	"time"
)

// Error taxonomy surfaced to the transport layer.
var (
	// ErrBadRequest flags missing or contradictory identifying parameters
	ErrBadRequest = errors.New("bad request")
	// ErrNotFound means no live catalog row matched the request
	ErrNotFound = errors.New("no such image")
	// ErrBusy means a destructive operation is already in flight
	ErrBusy = errors.New("destructive operation already in progress")
)

// Cache is the key/value store fronting lookups. Entries are always
// rebuildable from the catalog; none is authoritative.
type Cache interface {
	// Get returns ok=false on a miss
	Get(key string) (value string, ok bool, err error)
	Set(key, value string, ttl time.Duration) error
	Expire(key string, ttl time.Duration) error
	Delete(key string) error
	// DeleteByPrefix removes all keys under the prefix; cost is a full
	// keyspace scan, not a prefix-indexed operation
	DeleteByPrefix(prefix string) (int, error)
}

// ObjectStore is the durable variant storage plus the upload staging area.
type ObjectStore interface {
	PutObject(key string, payload []byte, modTime time.Time) error
	// DeleteObject is idempotent: deleting a missing key is not an error
	DeleteObject(key string) error
	ListObjects() ([]string, error)
	ClearBucket() (int, error)
	ListStaging() ([]string, error)
	GetStaging(key string) ([]byte, error)
	DeleteStaging(key string) error
}

// Notifier triggers the external republish sync. Fire-and-forget; failures
// are logged by callers, never propagated.
type Notifier interface {
	Notify() error
}

// IDGenerator produces catalog and affinity row ids.
type IDGenerator interface {
	NextID() int64
}
