package trie

import "github.com/ethcore/triedb/common"

// RefCounter tracks, per state root, how many live trie handles reference
// it, so a caller driving multiple speculatively-executed blocks can tell
// when an old root's nodes are no longer needed by anything still pinned
// (the "historical pruning" hook spec.md §1 Non-goals permits: the
// committer's NodeSet emission is in scope, the pruning policy itself is
// not). A root dropping to zero references does not delete anything from
// the backend here — it only reports which roots became free, leaving
// actual garbage collection to the caller's storage-tiering policy.
type RefCounter struct {
	refs map[common.Hash]int32
}

// NewRefCounter returns an empty reference counter.
func NewRefCounter() *RefCounter {
	return &RefCounter{refs: make(map[common.Hash]int32)}
}

// Reference records that root has one more live user, typically called
// right after a successful Commit with the returned root hash.
func (c *RefCounter) Reference(root common.Hash) {
	if root == emptyRoot || root == (common.Hash{}) {
		return
	}
	c.refs[root]++
}

// Dereference removes one live user of root, returning root itself if the
// count dropped to (or already was at) zero, so the caller can queue it for
// pruning. The empty root is never reported as free.
func (c *RefCounter) Dereference(root common.Hash) (freed common.Hash, ok bool) {
	if root == emptyRoot || root == (common.Hash{}) {
		return common.Hash{}, false
	}
	c.refs[root]--
	if c.refs[root] <= 0 {
		delete(c.refs, root)
		return root, true
	}
	return common.Hash{}, false
}

// RefCount reports the current reference count for root (zero if untracked).
func (c *RefCounter) RefCount(root common.Hash) int32 {
	return c.refs[root]
}
