// Package trie implements a secure Merkle-Patricia Trie backed by a
// path-keyed persistent store, per the Ethereum Yellow Paper's state trie
// construction: 16-ary radix tree over hex nibbles, hex-prefix encoded
// keys, RLP-encoded nodes, Keccak-256 hashing.
package trie

// node is the interface implemented by all trie node types.
type node interface {
	// cache returns the cached hash and dirty flag for this node.
	cache() (hashNode, bool)
}

// fullNode is a branch node with 16 children (one per hex nibble) plus an
// optional value. Children[16] holds the value embedded at this branch
// point, if any (a key that terminates exactly here).
type fullNode struct {
	Children [17]node
	flags    nodeFlag
}

// shortNode is an extension or leaf node. If Key carries the terminator
// nibble it is a leaf; otherwise it is an extension pointing at a child
// subtree.
type shortNode struct {
	Key   []byte
	Val   node
	flags nodeFlag
}

// hashNode is a reference to a node stored elsewhere, keyed by its
// Keccak-256 hash.
type hashNode []byte

// valueNode is raw leaf value data.
type valueNode []byte

// nodeFlag carries per-node caching state: the node's hash once computed,
// and whether it has been mutated since.
type nodeFlag struct {
	hash  hashNode
	dirty bool
}

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.hash, n.flags.dirty }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.hash, n.flags.dirty }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

// indexChildren counts the non-nil children of a fullNode, used by delete
// to collapse branches with a single remaining child.
func (n *fullNode) indexChildren() (count, pos int) {
	pos = -1
	for i, child := range n.Children {
		if child != nil {
			count++
			pos = i
		}
	}
	return count, pos
}
