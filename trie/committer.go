package trie

import (
	"golang.org/x/sync/errgroup"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/crypto"
)

// committer walks a trie's dirty nodes bottom-up, encoding and hashing each
// one and recording the result in a NodeSet keyed by trie path (component
// C6). Like the hasher, it fans out once across a root fullNode's children
// when the trie is large enough to be worth it, and is sequential below
// that single fan-out point.
type committer struct {
	set           *NodeSet
	collectLeaves bool
	parallel      bool
}

func newCommitter(set *NodeSet, collectLeaves bool, dirtyCount int) *committer {
	return &committer{set: set, collectLeaves: collectLeaves, parallel: dirtyCount > parallelThreshold}
}

// commit hashes n and everything beneath it, recording storable nodes into
// c.set keyed by path (the hex nibble path from the trie root to n). It
// returns the collapsed (hash reference) form for the parent's encoding and the
// cached (in-memory, hash-annotated) form to keep in the live tree.
func (c *committer) commit(n node, path []byte) (node, node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil, nil

	case valueNode:
		if c.collectLeaves {
			c.set.Leaves = append(c.set.Leaves, LeafInfo{
				Path:  append([]byte(nil), path...),
				Value: append([]byte(nil), n...),
			})
		}
		return n, n, nil

	case hashNode:
		return n, n, nil

	case *shortNode:
		if hash, dirty := n.cache(); hash != nil && !dirty {
			return hashNode(hash), n, nil
		}
		childPath := concat(path, n.Key)
		collapsed, cached := n.copy(), n.copy()
		if _, ok := n.Val.(valueNode); ok {
			if _, _, err := c.commit(n.Val, childPath); err != nil {
				return nil, nil, err
			}
		} else {
			childH, childC, err := c.commit(n.Val, childPath)
			if err != nil {
				return nil, nil, err
			}
			collapsed.Val = childH
			cached.Val = childC
		}
		return c.store(collapsed, cached, path)

	case *fullNode:
		if hash, dirty := n.cache(); hash != nil && !dirty {
			return hashNode(hash), n, nil
		}
		if c.parallel {
			return c.commitParallel(n, path)
		}
		collapsed, cached := n.copy(), n.copy()
		for i := 0; i < 16; i++ {
			if n.Children[i] == nil {
				continue
			}
			childH, childC, err := c.commit(n.Children[i], concat(path, []byte{byte(i)}))
			if err != nil {
				return nil, nil, err
			}
			collapsed.Children[i] = childH
			cached.Children[i] = childC
		}
		if n.Children[16] != nil {
			if _, _, err := c.commit(n.Children[16], concat(path, []byte{16})); err != nil {
				return nil, nil, err
			}
		}
		return c.store(collapsed, cached, path)

	default:
		return n, n, nil
	}
}

// commitParallel hashes a root fullNode's sixteen children concurrently,
// each under its own sub-committer with a private NodeSet, then move-merges
// the child sets into c.set on this single join goroutine (spec §9
// "parallel commit ownership": the parent NodeSet is never shared under a
// lock). Children are merged in index order so the result is independent of
// goroutine scheduling.
func (c *committer) commitParallel(n *fullNode, path []byte) (node, node, error) {
	collapsed, cached := n.copy(), n.copy()
	childSets := make([]*NodeSet, 17)

	var g errgroup.Group
	g.SetLimit(parallelFanout)
	for i := 0; i < 16; i++ {
		i := i
		child := n.Children[i]
		if child == nil {
			continue
		}
		g.Go(func() error {
			sub := newCommitter(NewNodeSet(c.set.Owner), c.collectLeaves, 0)
			childH, childC, err := sub.commit(child, concat(path, []byte{byte(i)}))
			if err != nil {
				return err
			}
			collapsed.Children[i] = childH
			cached.Children[i] = childC
			childSets[i] = sub.set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	for i := 0; i < 16; i++ {
		c.set.merge(childSets[i])
	}
	if n.Children[16] != nil {
		if _, _, err := c.commit(n.Children[16], concat(path, []byte{16})); err != nil {
			return nil, nil, err
		}
	}
	return c.store(collapsed, cached, path)
}

// store encodes collapsed, hashes it, and records the result into c.set.
// Every Short/Full node is hash-referenced regardless of encoded size; node
// references between persisted nodes are never inlined.
func (c *committer) store(collapsed, cached node, path []byte) (node, node, error) {
	enc := encodeNode(collapsed)
	hash := crypto.Keccak256(enc)
	h := common.BytesToHash(hash)
	c.set.addNode(path, h, enc)

	switch cn := cached.(type) {
	case *shortNode:
		cn.flags.hash = hashNode(hash)
		cn.flags.dirty = false
	case *fullNode:
		cn.flags.hash = hashNode(hash)
		cn.flags.dirty = false
	}
	return hashNode(hash), cached, nil
}
