// Package pathdb implements the ordered key/value backend the trie engine
// persists nodes into (spec §4.3): a write-through LRU read cache sitting in
// front of a pluggable KVStore, with atomic batches, prefix/range iteration,
// and read-consistent snapshots. Keys are arbitrary bytes; in practice the
// trie layer uses 32-byte Keccak node hashes, but pathdb itself is
// content-agnostic.
package pathdb

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Get/KVStore.Get when a key has no value.
var ErrNotFound = errors.New("pathdb: key not found")

// KVStore is the minimal ordered key/value contract a physical backend must
// satisfy. Database wraps a KVStore with the LRU cache and batch/snapshot
// machinery described in spec §4.3; KVStore implementations stay dumb.
type KVStore interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// NewIterator returns a forward cursor over keys in [start, limit). A nil
	// limit means unbounded. Keys are visited in ascending byte order.
	NewIterator(start, limit []byte) Iterator
	// NewSnapshot returns a read-only view of the store as of this call;
	// later writes to the store are not observed through the snapshot.
	NewSnapshot() (Snapshot, error)
	// NewBatch returns a new atomic write batch bound to this store.
	NewBatch() Batch
	// Stats reports backend-specific operational metrics.
	Stats() (Stats, error)
	// Compact requests backend compaction of the key range [start, limit).
	// A nil/nil range requests a full compaction. Backends that have no
	// notion of compaction (e.g. the in-memory store) treat this as a no-op.
	Compact(start, limit []byte) error
	Close() error
}

// Iterator walks a KVStore (or Snapshot) in ascending key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Snapshot is a read-only, point-in-time view of a KVStore.
type Snapshot interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	NewIterator(start, limit []byte) Iterator
	Release()
}

// Batch accumulates Put/Delete operations for atomic application via Write.
// A Batch is not safe for concurrent use.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	// ValueSize returns the accumulated size of pending operations, in bytes,
	// so callers can decide when to flush a long-running batch.
	ValueSize() int
	// Write atomically applies all accumulated operations to the underlying
	// store. The batch is left usable (but empty) afterwards only if the
	// caller calls Reset; per spec §4.3 batches are otherwise one-shot.
	Write() error
	// Reset discards all accumulated operations without touching the store.
	Reset()
}

// Stats reports coarse, backend-specific operational counters (spec §3
// "Path-DB stats"). Fields that a given backend cannot derive are left zero.
type Stats struct {
	PageSize      int
	MapSize       int64
	LiveKeys      int64
	LevelCount    int
	FileCount     int
	CacheEntries  int
	CacheCapacity int
}
