package trie

import (
	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/pathdb"
)

// nodeKeyPrefix namespaces node blobs within the shared path-DB keyspace,
// in case the same backend also stores non-trie data.
const nodeKeyPrefix = 'n'

func nodeKey(hash common.Hash) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = nodeKeyPrefix
	copy(key[1:], hash[:])
	return key
}

// NodeReader retrieves a canonically-encoded trie node by its hash.
type NodeReader interface {
	Node(hash common.Hash) ([]byte, error)
}

// NodeWriter stores a node blob keyed by its hash, as part of an atomic
// batch (spec §4.6: the backend batch is single-shot after all commit
// workers succeed).
type NodeWriter interface {
	Put(hash common.Hash, blob []byte) error
}

// Database adapts a pathdb.Database into the NodeReader/NodeWriter contract
// the trie engine depends on (spec §6: "sequence of (hash → blob) pairs
// stored in an arbitrary ordered KV backend").
type Database struct {
	store *pathdb.Database
}

// NewDatabase wraps a path-DB instance for trie node storage.
func NewDatabase(store *pathdb.Database) *Database {
	return &Database{store: store}
}

func (d *Database) Node(hash common.Hash) ([]byte, error) {
	v, ok, err := d.store.Get(nodeKey(hash))
	if err != nil {
		return nil, &DatabaseError{Op: "get", Err: err}
	}
	if !ok {
		return nil, &DatabaseError{Op: "get", Err: pathdb.ErrNotFound}
	}
	return v, nil
}

func (d *Database) Put(hash common.Hash, blob []byte) error {
	if err := d.store.Put(nodeKey(hash), blob); err != nil {
		return &DatabaseError{Op: "put", Err: err}
	}
	return nil
}

// batchWriter adapts a pathdb batch to NodeWriter so the committer can
// accumulate an atomic group of node writes before a single write_batch
// (spec §4.6, §5 "commits are atomic at the backend boundary").
type batchWriter struct {
	batch *pathdb.DatabaseBatch
}

// NewBatch starts an atomic write batch for a commit.
func (d *Database) NewBatch() *batchWriter {
	return &batchWriter{batch: d.store.NewBatch()}
}

func (w *batchWriter) Put(hash common.Hash, blob []byte) error {
	if err := w.batch.Put(nodeKey(hash), blob); err != nil {
		return &DatabaseError{Op: "batch put", Err: err}
	}
	return nil
}

// Write commits the accumulated batch atomically.
func (w *batchWriter) Write() error {
	if err := w.batch.Write(); err != nil {
		return &DatabaseError{Op: "batch write", Err: err}
	}
	return nil
}

// NodeInfo is one entry of a NodeSet: the canonical hash and encoded blob
// stored for a given trie path.
type NodeInfo struct {
	Hash common.Hash
	Blob []byte
}

// LeafInfo records a leaf value touched by a commit, collected only when
// requested (spec §4.4 commit(collect_leaves)).
type LeafInfo struct {
	Path  []byte // hex nibble path, including terminator
	Value []byte
}

// NodeSet is the change set produced by a single trie's commit (spec §3
// "NodeSet"): every inserted/updated node keyed by its path within the
// trie, plus optional leaves and update/delete counters.
type NodeSet struct {
	Owner        common.Hash // zero for the account trie; hashed address for a storage trie
	Nodes        map[string]NodeInfo
	Leaves       []LeafInfo
	UpdatesCount int
	DeletesCount int
}

// NewNodeSet creates an empty change set for the given trie owner.
func NewNodeSet(owner common.Hash) *NodeSet {
	return &NodeSet{Owner: owner, Nodes: make(map[string]NodeInfo)}
}

// addNode records a committed node at path.
func (s *NodeSet) addNode(path []byte, hash common.Hash, blob []byte) {
	s.Nodes[string(path)] = NodeInfo{Hash: hash, Blob: blob}
	s.UpdatesCount++
}

// merge folds a child NodeSet (produced by a parallel commit worker) into
// s. Per spec §9 "parallel commit ownership", this must be a move-merge on
// the single join goroutine, never a shared map under a lock.
func (s *NodeSet) merge(child *NodeSet) {
	if child == nil {
		return
	}
	for path, info := range child.Nodes {
		s.Nodes[path] = info
	}
	s.Leaves = append(s.Leaves, child.Leaves...)
	s.UpdatesCount += child.UpdatesCount
	s.DeletesCount += child.DeletesCount
}
