package pathdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPebbleStorePutGetDelete exercises the production Pebble-backed
// KVStore end to end, confirming it satisfies the same contract as
// MemoryStore.
func TestPebbleStorePutGetDelete(t *testing.T) {
	store, err := OpenPebbleStore(filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	v, err := store.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	ok, err := store.Has([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Delete([]byte("k")))
	_, err = store.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPebbleStoreBatchAndIterator(t *testing.T) {
	store, err := OpenPebbleStore(filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)
	defer store.Close()

	b := store.NewBatch()
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Write())

	it := store.NewIterator(nil, nil)
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Error())
	require.Equal(t, []string{"a", "b"}, keys)
}

// TestLevelDBStorePutGetDelete exercises the second pluggable KVStore
// engine, confirming a backend swap changes nothing about the contract.
func TestLevelDBStorePutGetDelete(t *testing.T) {
	store, err := OpenLevelDBStore(filepath.Join(t.TempDir(), "leveldb"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	v, err := store.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, store.Delete([]byte("k")))
	_, err = store.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound)
}

// TestDatabaseOverPebbleStore confirms the cache layer works the same way
// regardless of which KVStore backs it.
func TestDatabaseOverPebbleStore(t *testing.T) {
	store, err := OpenPebbleStore(filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)
	defer store.Close()

	db, err := Open(store, Options{Name: t.Name()})
	require.NoError(t, err)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	v, ok, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}
