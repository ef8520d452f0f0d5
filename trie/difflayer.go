package trie

import "github.com/ethcore/triedb/common"

// Difflayer is an immutable, per-block overlay mapping node hash to node
// blob (spec §3, §4.8). It is built by the execution pipeline for
// speculative block execution and layered in front of the backend; commit
// never writes into it.
type Difflayer struct {
	nodes map[common.Hash][]byte
}

// NewDifflayer wraps a fixed set of (hash → blob) pairs as a read-only
// overlay. The caller owns constructing it, typically from the NodeSet of
// a speculatively-executed parent block.
func NewDifflayer(nodes map[common.Hash][]byte) *Difflayer {
	if nodes == nil {
		nodes = make(map[common.Hash][]byte)
	}
	return &Difflayer{nodes: nodes}
}

// NewDifflayerFromSet builds an overlay directly from a commit's NodeSet,
// so the caller of Commit can chain speculative execution of the next
// block without a round trip through the backend.
func NewDifflayerFromSet(set *NodeSet) *Difflayer {
	nodes := make(map[common.Hash][]byte, len(set.Nodes))
	for _, info := range set.Nodes {
		nodes[info.Hash] = info.Blob
	}
	return &Difflayer{nodes: nodes}
}

// Get looks up a node blob by hash, reporting whether it was present in
// this layer.
func (d *Difflayer) Get(hash common.Hash) ([]byte, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.nodes[hash]
	return v, ok
}

// Len reports how many nodes this overlay carries.
func (d *Difflayer) Len() int {
	if d == nil {
		return 0
	}
	return len(d.nodes)
}

// resolver is the read-through chain a trie consults to materialize a Hash
// node: difflayer first, backend on miss (spec §4.8).
type resolver struct {
	diff *Difflayer
	db   NodeReader
}

func (r resolver) Node(hash common.Hash) ([]byte, error) {
	if r.diff != nil {
		if blob, ok := r.diff.Get(hash); ok {
			return blob, nil
		}
	}
	if r.db == nil {
		return nil, &DatabaseError{Op: "get", Err: ErrInvalidState}
	}
	return r.db.Node(hash)
}
