package prefetch

import (
	"math/big"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/pathdb"
	"github.com/ethcore/triedb/trie"
)

// countingStore wraps a MemoryStore and counts backend Get calls, so tests
// can confirm a warmed trie serves reads without touching the store again.
type countingStore struct {
	*pathdb.MemoryStore
	gets int64
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: pathdb.NewMemoryStore()}
}

func (c *countingStore) Get(key []byte) ([]byte, error) {
	atomic.AddInt64(&c.gets, 1)
	return c.MemoryStore.Get(key)
}

func setupSession(t *testing.T, numAccounts, slotsPerAccount int) (*countingStore, *pathdb.Database, common.Hash, map[common.Hash][]common.Hash) {
	t.Helper()
	store := newCountingStore()
	pdb, err := pathdb.Open(store, pathdb.Options{Name: t.Name()})
	require.NoError(t, err)
	db := trie.NewDatabase(pdb)

	r := rand.New(rand.NewSource(1))
	slotsByAccount := make(map[common.Hash][]common.Hash, numAccounts)

	accountTrie, err := trie.New(trie.ID{}, db, nil)
	require.NoError(t, err)

	for i := 0; i < numAccounts; i++ {
		var addr common.Hash
		r.Read(addr[:])

		storageTrie, err := trie.New(trie.ID{Owner: addr}, db, nil)
		require.NoError(t, err)

		slots := make([]common.Hash, slotsPerAccount)
		for j := range slots {
			var slot common.Hash
			r.Read(slot[:])
			slots[j] = slot
			require.NoError(t, storageTrie.Update(slot[:], []byte{byte(j + 1)}))
		}
		slotsByAccount[addr] = slots

		storageRoot, _, err := storageTrie.Commit(db, false)
		require.NoError(t, err)

		acc := &trie.StateAccount{Nonce: 1, Balance: big.NewInt(0), Root: storageRoot, CodeHash: trie.EmptyCodeHash}
		blob, err := trie.EncodeAccount(acc)
		require.NoError(t, err)
		require.NoError(t, accountTrie.Update(addr[:], blob))
	}

	stateRoot, _, err := accountTrie.Commit(db, false)
	require.NoError(t, err)

	return store, db, stateRoot, slotsByAccount
}

// TestE7PrefetchWarmsAllAccountsAndSlots exercises the concurrent prefetcher
// over a moderately sized session (spec §8 E7): every hinted account and
// slot ends up resolvable in the returned Result without further backend
// reads.
func TestE7PrefetchWarmsAllAccountsAndSlots(t *testing.T) {
	const numAccounts, slotsPerAccount = 100, 10
	store, db, stateRoot, slotsByAccount := setupSession(t, numAccounts, slotsPerAccount)

	h := Open(Config{StateRoot: stateRoot, DB: db})
	var hints []Hint
	for addr, slots := range slotsByAccount {
		hints = append(hints, Hint{Account: addr, Slots: slots})
	}
	h.Prefetch(hints)
	result := h.Finish()

	require.Len(t, result.StorageTries, numAccounts)
	for addr, slots := range slotsByAccount {
		st, ok := result.StorageTries[addr]
		require.True(t, ok, "missing storage trie for account %x", addr)
		require.Equal(t, slotsPerAccount, result.StorageTouched[addr])

		before := atomic.LoadInt64(&store.gets)
		for _, slot := range slots {
			_, found, err := st.Get(slot[:])
			require.NoError(t, err)
			require.True(t, found)
		}
		after := atomic.LoadInt64(&store.gets)
		require.Equal(t, before, after, "warmed trie must not re-read the backend for already-prefetched slots")
	}
}

// TestCancelledPrefetchYieldsValidResult verifies spec §8 property 11: a
// session finished immediately (before hints have necessarily drained)
// still returns a structurally valid, non-nil Result.
func TestCancelledPrefetchYieldsValidResult(t *testing.T) {
	_, db, stateRoot, slotsByAccount := setupSession(t, 20, 5)

	h := Open(Config{StateRoot: stateRoot, DB: db})
	var hints []Hint
	for addr, slots := range slotsByAccount {
		hints = append(hints, Hint{Account: addr, Slots: slots})
	}
	h.Prefetch(hints)
	// No sleep: race Finish directly against the in-flight hint batch to
	// exercise the cancellation path rather than the steady-state path.
	result := h.Finish()

	require.NotNil(t, result)
	require.NotNil(t, result.StorageTries)
	require.NotNil(t, result.StorageRoots)
	require.NotNil(t, result.StorageTouched)
}

// TestPrefetchDropsHintsAfterFinish verifies a Prefetch call submitted after
// Finish has been observed is silently ignored, never panics or blocks.
func TestPrefetchDropsHintsAfterFinish(t *testing.T) {
	_, db, stateRoot, _ := setupSession(t, 1, 1)

	h := Open(Config{StateRoot: stateRoot, DB: db})
	result := h.Finish()
	require.NotNil(t, result)

	done := make(chan struct{})
	go func() {
		h.Prefetch([]Hint{{Account: common.HexToHash("0x1")}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Prefetch after Finish must return promptly, not block")
	}
}
