package pathdb

import (
	"github.com/cockroachdb/pebble"
)

// PebbleStore implements KVStore against an embedded Pebble instance. This
// is the production-grade backend: Pebble's own block cache, compaction and
// WAL give the durability guarantees spec §4.3 assumes of "an arbitrary
// ordered KV backend".
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore opens (creating if necessary) a Pebble database at dir.
func OpenPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Has(key []byte) (bool, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	_ = v
	return true, nil
}

func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	v, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	closer.Close()
	return cp, nil
}

func (p *PebbleStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

func (p *PebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Compact(start, limit []byte) error {
	return p.db.Compact(start, limit, true)
}

func (p *PebbleStore) Stats() (Stats, error) {
	m := p.db.Metrics()
	// LiveKeys is left zero: this store does not derive a live-key count.
	return Stats{
		LevelCount: len(m.Levels),
		FileCount:  int(m.NumTables()),
		MapSize:    int64(m.DiskSpaceUsage()),
	}, nil
}

func (p *PebbleStore) NewIterator(start, limit []byte) Iterator {
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: limit})
	if err != nil {
		return &errIterator{err: err}
	}
	return &pebbleIterator{it: it, started: false}
}

func (p *PebbleStore) NewSnapshot() (Snapshot, error) {
	return &pebbleSnapshot{snap: p.db.NewSnapshot()}, nil
}

func (p *PebbleStore) NewBatch() Batch {
	return &pebbleBatch{db: p.db, batch: p.db.NewBatch()}
}

type pebbleIterator struct {
	it      *pebble.Iterator
	started bool
}

func (it *pebbleIterator) Next() bool {
	if !it.started {
		it.started = true
		return it.it.First()
	}
	return it.it.Next()
}

func (it *pebbleIterator) Key() []byte   { return it.it.Key() }
func (it *pebbleIterator) Value() []byte { return it.it.Value() }
func (it *pebbleIterator) Error() error  { return it.it.Error() }
func (it *pebbleIterator) Release()      { it.it.Close() }

type errIterator struct{ err error }

func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Error() error  { return it.err }
func (it *errIterator) Release()      {}

type pebbleSnapshot struct {
	snap *pebble.Snapshot
}

func (s *pebbleSnapshot) Has(key []byte) (bool, error) {
	v, closer, err := s.snap.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	_ = v
	return true, nil
}

func (s *pebbleSnapshot) Get(key []byte) ([]byte, error) {
	v, closer, err := s.snap.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	closer.Close()
	return cp, nil
}

func (s *pebbleSnapshot) NewIterator(start, limit []byte) Iterator {
	it, err := s.snap.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: limit})
	if err != nil {
		return &errIterator{err: err}
	}
	return &pebbleIterator{it: it}
}

func (s *pebbleSnapshot) Release() { s.snap.Close() }

type pebbleBatch struct {
	db    *pebble.DB
	batch *pebble.Batch
	size  int
}

func (b *pebbleBatch) Put(key, value []byte) error {
	b.size += len(key) + len(value)
	return b.batch.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key []byte) error {
	b.size += len(key)
	return b.batch.Delete(key, nil)
}

func (b *pebbleBatch) ValueSize() int { return b.size }

func (b *pebbleBatch) Write() error {
	return b.batch.Commit(pebble.Sync)
}

func (b *pebbleBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}
