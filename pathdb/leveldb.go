package pathdb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBStore implements KVStore against goleveldb, the second ordered KV
// engine named in the teacher's dependency pack (spec §4.3 calls out that
// the backend must be swappable; shipping a second real engine alongside
// Pebble demonstrates that).
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (creating if necessary) a LevelDB database at dir.
func OpenLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &LevelDBStore{db: db}, nil
}

func (l *LevelDBStore) Has(key []byte) (bool, error) {
	return l.db.Has(key, nil)
}

func (l *LevelDBStore) Get(key []byte) ([]byte, error) {
	v, err := l.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (l *LevelDBStore) Put(key, value []byte) error {
	return l.db.Put(key, value, nil)
}

func (l *LevelDBStore) Delete(key []byte) error {
	return l.db.Delete(key, nil)
}

func (l *LevelDBStore) Close() error { return l.db.Close() }

func (l *LevelDBStore) Compact(start, limit []byte) error {
	return l.db.CompactRange(util.Range{Start: start, Limit: limit})
}

func (l *LevelDBStore) Stats() (Stats, error) {
	s := &leveldb.DBStats{}
	if err := l.db.Stats(s); err != nil {
		return Stats{}, err
	}
	files := 0
	for _, n := range s.LevelTablesCounts {
		files += n
	}
	return Stats{
		LevelCount: len(s.LevelTablesCounts),
		FileCount:  files,
		MapSize:    s.LevelSizes.Sum(),
	}, nil
}

func (l *LevelDBStore) NewIterator(start, limit []byte) Iterator {
	it := l.db.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
	return &levelIterator{it: it}
}

func (l *LevelDBStore) NewSnapshot() (Snapshot, error) {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	return &levelSnapshot{snap: snap}, nil
}

func (l *LevelDBStore) NewBatch() Batch {
	return &levelBatch{db: l.db, batch: new(leveldb.Batch)}
}

type levelIterator struct {
	it iteratorLike
}

// iteratorLike matches the subset of leveldb/iterator.Iterator this package
// uses, so levelIterator can wrap both DB- and Snapshot-scoped iterators.
type iteratorLike interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

func (it *levelIterator) Next() bool    { return it.it.Next() }
func (it *levelIterator) Key() []byte   { return it.it.Key() }
func (it *levelIterator) Value() []byte { return it.it.Value() }
func (it *levelIterator) Error() error {
	if err := it.it.Error(); err != nil && err != errors.ErrNotFound {
		return err
	}
	return nil
}
func (it *levelIterator) Release() { it.it.Release() }

type levelSnapshot struct {
	snap *leveldb.Snapshot
}

func (s *levelSnapshot) Has(key []byte) (bool, error) {
	return s.snap.Has(key, nil)
}

func (s *levelSnapshot) Get(key []byte) ([]byte, error) {
	v, err := s.snap.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *levelSnapshot) NewIterator(start, limit []byte) Iterator {
	it := s.snap.NewIterator(&util.Range{Start: start, Limit: limit}, nil)
	return &levelIterator{it: it}
}

func (s *levelSnapshot) Release() { s.snap.Release() }

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
	size  int
}

func (b *levelBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *levelBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	b.size += len(key)
	return nil
}

func (b *levelBatch) ValueSize() int { return b.size }

func (b *levelBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

func (b *levelBatch) Reset() {
	b.batch.Reset()
	b.size = 0
}
