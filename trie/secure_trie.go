package trie

import (
	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/crypto"
)

// SecureTrie wraps a Trie so that all keys are Keccak-256 hashed before any
// trie operation touches them (component C7). This is what makes the state
// and storage tries resistant to an attacker choosing keys that collide on
// a shallow trie path. A small preimage cache lets callers recover the
// original key from GetKey after it has been hashed away.
type SecureTrie struct {
	trie      *Trie
	preimages map[string][]byte
}

// NewSecure wraps t as a secure trie with an empty preimage cache.
// Preimages are neither persisted nor pre-loadable, so a SecureTrie opened
// over a committed trie only knows the keys passed through it since.
func NewSecure(t *Trie) *SecureTrie {
	return &SecureTrie{trie: t, preimages: make(map[string][]byte)}
}

// hashKey returns the Keccak-256 hash of key and remembers the mapping so
// GetKey can reverse it later.
func (s *SecureTrie) hashKey(key []byte) []byte {
	hash := crypto.Keccak256(key)
	if _, ok := s.preimages[string(hash)]; !ok {
		cp := make([]byte, len(key))
		copy(cp, key)
		s.preimages[string(hash)] = cp
	}
	return hash
}

// Get retrieves the value stored for key.
func (s *SecureTrie) Get(key []byte) ([]byte, bool, error) {
	return s.trie.Get(s.hashKey(key))
}

// Update inserts or overwrites key with value. An empty value deletes.
func (s *SecureTrie) Update(key, value []byte) error {
	return s.trie.Update(s.hashKey(key), value)
}

// Delete removes key. Missing keys are a no-op.
func (s *SecureTrie) Delete(key []byte) error {
	return s.trie.Delete(s.hashKey(key))
}

// GetKey returns the original, unhashed key for a given hashed key, if this
// SecureTrie has seen it before. It returns nil if the preimage is unknown.
func (s *SecureTrie) GetKey(hashedKey []byte) []byte {
	if pre, ok := s.preimages[string(hashedKey)]; ok {
		return pre
	}
	return nil
}

// Hash returns the root hash of the underlying trie.
func (s *SecureTrie) Hash() common.Hash { return s.trie.Hash() }

// Commit hashes and persists the underlying trie, returning its root and
// change set.
func (s *SecureTrie) Commit(db *Database, collectLeaves bool) (common.Hash, *NodeSet, error) {
	return s.trie.Commit(db, collectLeaves)
}

// Copy returns the underlying Trie, for callers that need direct access
// (e.g. the prefetcher, which reads without needing the key-hashing layer
// since it is handed already-hashed storage slot keys).
func (s *SecureTrie) Copy() *Trie { return s.trie }
