package trie

import (
	"golang.org/x/sync/errgroup"

	"github.com/ethcore/triedb/crypto"
)

// parallelThreshold is the minimum number of dirty nodes hanging off a root
// fullNode before the hasher bothers fanning work out across goroutines; a
// trie this size comfortably amortizes the goroutine and errgroup overhead.
const parallelThreshold = 100

// parallelFanout bounds the number of concurrent hash workers spawned for a
// single root fullNode's sixteen children.
const parallelFanout = 16

// hasher computes node hashes bottom-up. A single hasher may fan its work
// out across goroutines exactly once, at the root fullNode it is handed;
// every node below that point is always hashed sequentially, which keeps
// the result identical regardless of whether fan-out happened.
type hasher struct {
	parallel bool
}

// newHasher returns a hasher configured to fan out only if dirtyCount
// exceeds parallelThreshold.
func newHasher(dirtyCount int) *hasher {
	return &hasher{parallel: dirtyCount > parallelThreshold}
}

// hash computes the hash of a node. Every Short/Full node is always
// converted to a 32-byte hash reference; node references between persisted
// nodes are never inlined regardless of encoded size.
func (h *hasher) hash(n node) (node, node) {
	if hash, dirty := n.cache(); hash != nil && !dirty {
		return hash, n
	}
	var collapsed, cached node
	if fn, ok := n.(*fullNode); ok && h.parallel {
		collapsed, cached = h.hashChildrenParallel(fn)
	} else {
		collapsed, cached = h.hashChildren(n)
	}
	hashed := h.store(collapsed)

	cachedHash, _ := hashed.(hashNode)
	switch cn := cached.(type) {
	case *shortNode:
		cn.flags.hash = cachedHash
		cn.flags.dirty = false
	case *fullNode:
		cn.flags.hash = cachedHash
		cn.flags.dirty = false
	}
	return hashed, cached
}

// hashChildren hashes a node's children sequentially.
func (h *hasher) hashChildren(original node) (node, node) {
	switch n := original.(type) {
	case *shortNode:
		collapsed, cached := n.copy(), n.copy()
		if _, ok := n.Val.(valueNode); !ok && n.Val != nil {
			childH, childC := h.hash(n.Val)
			collapsed.Val = childH
			cached.Val = childC
		}
		return collapsed, cached

	case *fullNode:
		collapsed, cached := n.copy(), n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childH, childC := h.hash(n.Children[i])
				collapsed.Children[i] = childH
				cached.Children[i] = childC
			}
		}
		return collapsed, cached

	default:
		return n, n
	}
}

// hashChildrenParallel hashes a root fullNode's sixteen children across a
// bounded pool of goroutines, each running a non-parallel sub-hasher. Every
// goroutine writes to a distinct array slot, so no locking is needed; the
// result is byte-identical to the sequential path (spec §4.5, component C5).
func (h *hasher) hashChildrenParallel(n *fullNode) (node, node) {
	collapsed, cached := n.copy(), n.copy()

	var g errgroup.Group
	g.SetLimit(parallelFanout)
	for i := 0; i < 16; i++ {
		i := i
		child := n.Children[i]
		if child == nil {
			continue
		}
		g.Go(func() error {
			sub := &hasher{parallel: false}
			childH, childC := sub.hash(child)
			collapsed.Children[i] = childH
			cached.Children[i] = childC
			return nil
		})
	}
	_ = g.Wait() // worker funcs never return an error
	return collapsed, cached
}

// store RLP-encodes a collapsed node and returns its Keccak-256 hash.
// Node references between persisted nodes are always by 32-byte hash; there
// is no in-place inlining of short encodings, at the root or anywhere else.
func (h *hasher) store(n node) node {
	if _, ok := n.(hashNode); ok {
		return n
	}
	if _, ok := n.(valueNode); ok {
		return n
	}
	enc := encodeNode(n)
	return hashNode(crypto.Keccak256(enc))
}
