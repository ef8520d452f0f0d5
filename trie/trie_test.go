package trie

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/pathdb"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	store := pathdb.NewMemoryStore()
	pdb, err := pathdb.Open(store, pathdb.Options{})
	require.NoError(t, err)
	return NewDatabase(pdb)
}

func newEmptyTrie(t *testing.T) (*Trie, *Database) {
	t.Helper()
	db := newTestDatabase(t)
	tr, err := New(ID{}, db, nil)
	require.NoError(t, err)
	return tr, db
}

// E1: a fresh trie's root is the canonical empty-root constant.
func TestE1EmptyTrieRoot(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.Equal(t, common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421"), tr.Hash())
	require.Equal(t, emptyRoot, EmptyRootHash())
}

// E2: single insert produces a leaf shortNode whose compact key decodes
// back to nibbles("do") + terminator, with a Value child.
func TestE2SingleInsert(t *testing.T) {
	tr, db := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("do"), []byte("verb")))

	root, _, err := tr.Commit(db, false)
	require.NoError(t, err)

	blob, err := db.Node(root)
	require.NoError(t, err)

	decoded, err := decodeNode(hashNode(root[:]), blob)
	require.NoError(t, err)

	short, ok := decoded.(*shortNode)
	require.True(t, ok, "root must decode as a shortNode")
	require.Equal(t, keybytesToHex([]byte("do")), short.Key)

	val, ok := short.Val.(valueNode)
	require.True(t, ok, "leaf child must be a valueNode")
	require.Equal(t, []byte("verb"), []byte(val))
}

// E3: two divergent inserts produce a shortNode with the common prefix,
// branching into a fullNode whose slot 16 holds "verb" and whose "g" slot
// continues to "puppy".
func TestE3TwoDivergentInserts(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("do"), []byte("verb")))
	require.NoError(t, tr.Update([]byte("dog"), []byte("puppy")))

	tr.Hash()
	short, ok := tr.root.(*shortNode)
	require.True(t, ok, "root must be a shortNode for the common \"do\" prefix")
	require.Equal(t, keybytesToHex([]byte("do"))[:len(keybytesToHex([]byte("do")))-1], short.Key)

	full, ok := short.Val.(*fullNode)
	require.True(t, ok, "shortNode's child must branch")

	val, ok := full.Children[16].(valueNode)
	require.True(t, ok)
	require.Equal(t, []byte("verb"), []byte(val))

	gNibble := keybytesToHex([]byte("g"))[0]
	require.NotNil(t, full.Children[gNibble])
}

// E4: update then delete leaves the trie identical to one built from the
// surviving keys alone, in either insertion order (also covers §8
// properties 6 and 7).
func TestE4UpdateThenDelete(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("a"), []byte("1")))
	require.NoError(t, tr.Update([]byte("b"), []byte("2")))
	require.NoError(t, tr.Update([]byte("c"), []byte("3")))
	require.NoError(t, tr.Delete([]byte("b")))
	got := tr.Hash()

	trA, _ := newEmptyTrie(t)
	require.NoError(t, trA.Update([]byte("a"), []byte("1")))
	require.NoError(t, trA.Update([]byte("c"), []byte("3")))
	wantA := trA.Hash()

	trB, _ := newEmptyTrie(t)
	require.NoError(t, trB.Update([]byte("c"), []byte("3")))
	require.NoError(t, trB.Update([]byte("a"), []byte("1")))
	wantB := trB.Hash()

	require.Equal(t, wantA, got)
	require.Equal(t, wantB, got)
}

// E5: commit 1000 random KV pairs, drop the in-memory trie, reopen from
// the returned root using only the backend, and read every key back.
func TestE5CommitAndReload(t *testing.T) {
	db := newTestDatabase(t)
	tr, err := New(ID{}, db, nil)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(42))
	kvs := randomKVs(r, 1000)
	for k, v := range kvs {
		require.NoError(t, tr.Update([]byte(k), v))
	}
	root, _, err := tr.Commit(db, false)
	require.NoError(t, err)

	reopened, err := New(ID{Root: root}, db, nil)
	require.NoError(t, err)
	for k, v := range kvs {
		got, found, err := reopened.Get([]byte(k))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, v, got)
	}
}

// E6: parallel and sequential committer runs over the same mutation set,
// each on its own identical backend, produce byte-identical roots and
// NodeSets (spec §8 property 8).
func TestE6ParallelSequentialEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	kvs := randomKVs(r, 1000)

	buildAndCommit := func(parallel bool) (common.Hash, *NodeSet) {
		db := newTestDatabase(t)
		tr, err := New(ID{}, db, nil)
		require.NoError(t, err)
		for k, v := range kvs {
			require.NoError(t, tr.Update([]byte(k), v))
		}
		set := NewNodeSet(common.Hash{})
		c := &committer{set: set, collectLeaves: true, parallel: parallel}
		hashed, _, err := c.commit(tr.root, nil)
		require.NoError(t, err)
		return common.BytesToHash(hashed.(hashNode)), set
	}

	root1, set1 := buildAndCommit(true)
	root2, set2 := buildAndCommit(false)

	require.Equal(t, root1, root2)
	require.Equal(t, len(set1.Nodes), len(set2.Nodes))
	for path, info := range set1.Nodes {
		other, ok := set2.Nodes[path]
		require.True(t, ok, "path %x missing from second commit's NodeSet", path)
		require.Equal(t, info.Hash, other.Hash)
		require.Equal(t, info.Blob, other.Blob)
	}
}

// TestIdempotentUpdate verifies spec §8 property 5: re-applying the same
// value is a no-op on the root.
func TestIdempotentUpdate(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("key"), []byte("value")))
	first := tr.Hash()
	require.NoError(t, tr.Update([]byte("key"), []byte("value")))
	require.Equal(t, first, tr.Hash())
}

// TestInsertDeleteInverse verifies spec §8 property 6 directly: for a
// fresh key, update then delete restores the original root.
func TestInsertDeleteInverse(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("existing"), []byte("1")))
	before := tr.Hash()

	require.NoError(t, tr.Update([]byte("new-key"), []byte("2")))
	require.NoError(t, tr.Delete([]byte("new-key")))
	require.Equal(t, before, tr.Hash())
}

// TestDeleteCollapse verifies spec §8 property 10: deleting all but one
// key from a branch collapses it into a single shortNode.
func TestDeleteCollapse(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("aa"), []byte("1")))
	require.NoError(t, tr.Update([]byte("ab"), []byte("2")))
	tr.Hash()
	_, ok := tr.root.(*shortNode)
	require.True(t, ok)

	require.NoError(t, tr.Delete([]byte("ab")))
	tr.Hash()

	short, ok := tr.root.(*shortNode)
	require.True(t, ok, "after collapse the root must be a single shortNode")
	val, ok := short.Val.(valueNode)
	require.True(t, ok)
	require.Equal(t, []byte("1"), []byte(val))
}

// TestResolveTransparency verifies spec §8 property 9: Get on a trie whose
// root has been replaced by a Hash reference still returns the correct
// value, transparently resolving through the backend.
func TestResolveTransparency(t *testing.T) {
	db := newTestDatabase(t)
	tr, err := New(ID{}, db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Update([]byte("alpha"), []byte("1")))
	require.NoError(t, tr.Update([]byte("beta"), []byte("2")))
	root, _, err := tr.Commit(db, false)
	require.NoError(t, err)

	reopened, err := New(ID{Root: root}, db, nil)
	require.NoError(t, err)
	v, found, err := reopened.Get([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
}

// TestAlreadyCommitted verifies spec §4.4/§7: mutating a committed trie
// returns ErrAlreadyCommitted.
func TestAlreadyCommitted(t *testing.T) {
	tr, db := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("k"), []byte("v")))
	_, _, err := tr.Commit(db, false)
	require.NoError(t, err)

	require.ErrorIs(t, tr.Update([]byte("k2"), []byte("v2")), ErrAlreadyCommitted)
	require.ErrorIs(t, tr.Delete([]byte("k")), ErrAlreadyCommitted)
	_, _, err = tr.Commit(db, false)
	require.ErrorIs(t, err, ErrAlreadyCommitted)
}

// TestEmptyValueDegeneratesDelete verifies spec §4.4: Update with an empty
// value behaves as Delete.
func TestEmptyValueDegeneratesDelete(t *testing.T) {
	tr, _ := newEmptyTrie(t)
	require.NoError(t, tr.Update([]byte("k"), []byte("v")))
	require.NoError(t, tr.Update([]byte("k"), nil))
	_, found, err := tr.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

// TestCommitTracksDeletes verifies the NodeSet from a second commit counts
// the persisted nodes that a deletion made obsolete.
func TestCommitTracksDeletes(t *testing.T) {
	db := newTestDatabase(t)
	tr, err := New(ID{}, db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Update([]byte("aa"), []byte("1")))
	require.NoError(t, tr.Update([]byte("ab"), []byte("2")))
	root, set, err := tr.Commit(db, false)
	require.NoError(t, err)
	require.Zero(t, set.DeletesCount)

	reopened, err := New(ID{Root: root}, db, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Delete([]byte("ab")))
	_, delSet, err := reopened.Commit(db, false)
	require.NoError(t, err)
	require.Positive(t, delSet.DeletesCount)
}

func randomKVs(r *rand.Rand, n int) map[string][]byte {
	kvs := make(map[string][]byte, n)
	for len(kvs) < n {
		k := make([]byte, 4+r.Intn(28))
		r.Read(k)
		v := make([]byte, 1+r.Intn(64))
		r.Read(v)
		kvs[string(k)] = v
	}
	return kvs
}
