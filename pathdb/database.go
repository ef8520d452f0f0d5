package pathdb

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ethcore/triedb/internal/metrics"
	"github.com/ethcore/triedb/log"
)

var logger = log.New("pathdb")

// cacheEntry distinguishes a real zero-length value from the absent marker;
// both present as an empty []byte otherwise.
type cacheEntry struct {
	value []byte
	found bool
}

// Options configures a Database. The zero value is valid: CacheSize
// defaults to 4096 entries.
type Options struct {
	CacheSize int
	Name      string // used to namespace metrics; defaults to "default"
}

func (o Options) withDefaults() Options {
	if o.CacheSize <= 0 {
		o.CacheSize = 4096
	}
	if o.Name == "" {
		o.Name = "default"
	}
	return o
}

// Database is the path-keyed KV backend the trie engine persists nodes
// into: a write-through LRU read cache in front of a pluggable KVStore
// (spec §4.3). get/put/delete are internally synchronized by a short
// critical section guarding the cache only; the backing store handles its
// own concurrent readers/writers.
type Database struct {
	store    KVStore
	mu       sync.Mutex
	cache    *lru.Cache[string, cacheEntry]
	capacity int
	metrics  *metrics.PathDBMetrics
}

// Open wraps store with an LRU read cache sized per opts.
func Open(store KVStore, opts Options) (*Database, error) {
	opts = opts.withDefaults()
	c, err := lru.New[string, cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened path database", "cache_size", opts.CacheSize, "name", opts.Name)
	return &Database{
		store:    store,
		cache:    c,
		capacity: opts.CacheSize,
		metrics:  metrics.NewPathDBMetrics(opts.Name),
	}, nil
}

// Get returns the value for key, or (nil, false, nil) if it does not exist.
// A cache hit (positive or negative) never touches the backing store.
func (d *Database) Get(key []byte) ([]byte, bool, error) {
	k := string(key)

	d.mu.Lock()
	if e, ok := d.cache.Get(k); ok {
		d.mu.Unlock()
		d.metrics.CacheHits.Inc()
		if !e.found {
			return nil, false, nil
		}
		cp := make([]byte, len(e.value))
		copy(cp, e.value)
		return cp, true, nil
	}
	d.mu.Unlock()

	d.metrics.CacheMisses.Inc()
	v, err := d.store.Get(key)
	if err == ErrNotFound {
		d.mu.Lock()
		d.cache.Add(k, cacheEntry{found: false})
		d.metrics.CacheSize.Set(float64(d.cache.Len()))
		d.mu.Unlock()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	d.mu.Lock()
	d.cache.Add(k, cacheEntry{value: v, found: true})
	d.metrics.CacheSize.Set(float64(d.cache.Len()))
	d.mu.Unlock()
	return v, true, nil
}

// Exists reports whether key has a value, preferring the cache.
func (d *Database) Exists(key []byte) (bool, error) {
	_, ok, err := d.Get(key)
	return ok, err
}

// Put writes key/value and eagerly updates the cache.
func (d *Database) Put(key, value []byte) error {
	if err := d.store.Put(key, value); err != nil {
		// A failed put must not leave a stale cache entry (spec §4.3: "a
		// failed put evicts the stale entry before returning the error").
		d.mu.Lock()
		d.cache.Remove(string(key))
		d.mu.Unlock()
		return err
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	d.mu.Lock()
	d.cache.Add(string(key), cacheEntry{value: cp, found: true})
	d.metrics.CacheSize.Set(float64(d.cache.Len()))
	d.mu.Unlock()
	return nil
}

// Delete removes key and its cache entry.
func (d *Database) Delete(key []byte) error {
	if err := d.store.Delete(key); err != nil {
		return err
	}
	d.mu.Lock()
	d.cache.Remove(string(key))
	d.mu.Unlock()
	return nil
}

// GetMulti fetches several keys, returning the subset found.
func (d *Database) GetMulti(keys [][]byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok, err := d.Get(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[string(k)] = v
		}
	}
	return out, nil
}

// PutMulti writes several key/value pairs, not necessarily atomically
// (callers wanting atomicity should use NewBatch).
func (d *Database) PutMulti(kvs map[string][]byte) error {
	for k, v := range kvs {
		if err := d.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMulti deletes several keys, not necessarily atomically.
func (d *Database) DeleteMulti(keys [][]byte) error {
	for _, k := range keys {
		if err := d.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// NewBatch returns a batch that accumulates Put/Delete ops and, on Write,
// applies them atomically to the backing store and then updates the cache.
func (d *Database) NewBatch() *DatabaseBatch {
	return &DatabaseBatch{db: d, inner: d.store.NewBatch()}
}

// DatabaseBatch is an atomic group of writes plus the cache-update bookkeeping
// Database needs to stay coherent after Write.
type DatabaseBatch struct {
	db    *Database
	inner Batch
	ops   []batchOp
}

func (b *DatabaseBatch) Put(key, value []byte) error {
	if err := b.inner.Put(key, value); err != nil {
		return err
	}
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	b.ops = append(b.ops, batchOp{key: k, value: v})
	return nil
}

func (b *DatabaseBatch) Delete(key []byte) error {
	if err := b.inner.Delete(key); err != nil {
		return err
	}
	k := append([]byte(nil), key...)
	b.ops = append(b.ops, batchOp{key: k, delete: true})
	return nil
}

func (b *DatabaseBatch) ValueSize() int { return b.inner.ValueSize() }

// Write atomically applies the batch to the backing store, then updates the
// cache for every key touched. Clearing (Reset) empties the batch without
// any I/O (spec §4.3).
func (b *DatabaseBatch) Write() error {
	if err := b.inner.Write(); err != nil {
		return err
	}
	b.db.mu.Lock()
	for _, op := range b.ops {
		if op.delete {
			b.db.cache.Remove(string(op.key))
			continue
		}
		b.db.cache.Add(string(op.key), cacheEntry{value: op.value, found: true})
	}
	b.db.metrics.CacheSize.Set(float64(b.db.cache.Len()))
	b.db.mu.Unlock()
	return nil
}

func (b *DatabaseBatch) Reset() {
	b.inner.Reset()
	b.ops = b.ops[:0]
}

// NewSnapshot returns a read-consistent view of the backing store, bypassing
// the cache (it always observes the store directly, never cached entries
// written after the snapshot was taken).
func (d *Database) NewSnapshot() (Snapshot, error) {
	return d.store.NewSnapshot()
}

// Iterator returns a forward cursor over [start, limit) in the backing
// store, bypassing the cache.
func (d *Database) Iterator(start, limit []byte) Iterator {
	return d.store.NewIterator(start, limit)
}

// Flush is a no-op for every backend, kept for interface symmetry with
// spec §4.3's "flush" operation. PebbleStore writes with pebble.Sync and
// MemoryStore has nothing to flush; LevelDBStore writes with default
// (non-sync) options, and Flush does not force those to disk.
func (d *Database) Flush() error { return nil }

// Compact requests backend compaction over [start, limit).
func (d *Database) Compact(start, limit []byte) error {
	return d.store.Compact(start, limit)
}

// Stats reports backend stats plus the LRU cache's own occupancy.
func (d *Database) Stats() (Stats, error) {
	s, err := d.store.Stats()
	if err != nil {
		return Stats{}, err
	}
	d.mu.Lock()
	s.CacheEntries = d.cache.Len()
	d.mu.Unlock()
	s.CacheCapacity = d.capacity
	d.metrics.LiveKeys.Set(float64(s.LiveKeys))
	return s, nil
}

// Close closes the backing store. The Database itself holds no other
// closeable resources.
func (d *Database) Close() error {
	return d.store.Close()
}
