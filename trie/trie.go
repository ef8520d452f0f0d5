package trie

import (
	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/crypto"
)

// emptyRoot is the root hash of an empty trie: Keccak256(RLP("")).
var emptyRoot = crypto.Keccak256Hash([]byte{0x80})

// EmptyRootHash is the canonical empty-root constant (spec §8 property 4).
func EmptyRootHash() common.Hash { return emptyRoot }

// ID identifies a (sub)trie: the storage trie for an account is owned by
// the Keccak-hashed account address; the account trie has a zero owner
// (spec §3 "TrieID").
type ID struct {
	StateRoot common.Hash
	Owner     common.Hash
	Root      common.Hash
}

// Trie is an in-memory Merkle-Patricia Trie with copy-on-write mutation and
// resolve-on-demand hash materialization (spec §4.4, component C4).
type Trie struct {
	id        ID
	root      node
	reader    resolver
	committed bool
	tracer    *tracer
}

// New opens a trie at id.Root, resolving the root node through diff (may be
// nil) then db. A zero or empty-root ID yields an empty trie.
func New(id ID, db NodeReader, diff *Difflayer) (*Trie, error) {
	t := &Trie{
		id:     id,
		reader: resolver{diff: diff, db: db},
		tracer: newTracer(),
	}
	if id.Root == (common.Hash{}) || id.Root == emptyRoot {
		return t, nil
	}
	root, err := t.resolveHash(hashNode(id.Root[:]))
	if err != nil {
		return nil, err
	}
	t.root = root
	return t, nil
}

// resolveHash loads and decodes a node from the overlay/backend by hash.
func (t *Trie) resolveHash(n hashNode) (node, error) {
	hash := common.BytesToHash(n)
	blob, err := t.reader.Node(hash)
	if err != nil {
		return nil, err
	}
	decoded, err := decodeNode(n, blob)
	if err != nil {
		return nil, &DecodeError{Hash: n, Err: err}
	}
	return decoded, nil
}

// Get retrieves the value for key. Resolved Hash nodes are substituted into
// the in-memory tree so a repeated Get along the same path never re-fetches
// from the backend (spec §8 property 9); this substitution does not touch
// persistent state.
func (t *Trie) Get(key []byte) ([]byte, bool, error) {
	value, newRoot, found, err := t.get(t.root, keybytesToHex(key), 0)
	if err != nil {
		return nil, false, err
	}
	t.root = newRoot
	return value, found, nil
}

func (t *Trie) get(n node, key []byte, pos int) ([]byte, node, bool, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil, false, nil

	case valueNode:
		return []byte(n), n, true, nil

	case *shortNode:
		if len(key)-pos < len(n.Key) || !keysEqual(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newVal, found, err := t.get(n.Val, key, pos+len(n.Key))
		if err != nil {
			return nil, n, false, err
		}
		// valueNode is a slice type, so == on it panics; get never replaces
		// a valueNode, so one always counts as unchanged.
		if _, isValue := n.Val.(valueNode); isValue || newVal == n.Val {
			return value, n, found, nil
		}
		cp := n.copy()
		cp.Val = newVal
		return value, cp, found, nil

	case *fullNode:
		var (
			value   []byte
			found   bool
			err     error
			newNode node
		)
		if pos >= len(key) {
			value, newNode, found, err = t.get(n.Children[16], key, pos)
			if err != nil {
				return nil, n, false, err
			}
			if _, isValue := n.Children[16].(valueNode); isValue || newNode == n.Children[16] {
				return value, n, found, nil
			}
			cp := n.copy()
			cp.Children[16] = newNode
			return value, cp, found, nil
		}
		idx := key[pos]
		value, newNode, found, err = t.get(n.Children[idx], key, pos+1)
		if err != nil {
			return nil, n, false, err
		}
		if _, isValue := n.Children[idx].(valueNode); isValue || newNode == n.Children[idx] {
			return value, n, found, nil
		}
		cp := n.copy()
		cp.Children[idx] = newNode
		return value, cp, found, nil

	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, n, false, err
		}
		return t.get(resolved, key, pos)

	default:
		return nil, n, false, &DatabaseError{Op: "get", Err: ErrInvalidState}
	}
}

// Update inserts or overwrites key with value. An empty value degenerates
// to Delete (spec §4.4).
func (t *Trie) Update(key, value []byte) error {
	if t.committed {
		return ErrAlreadyCommitted
	}
	if len(value) == 0 {
		return t.Delete(key)
	}
	n, err := t.insert(t.root, keybytesToHex(key), valueNode(value))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) insert(n node, key []byte, value node) (node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok && keysEqual(v, value.(valueNode)) {
			return v, nil
		}
		return value, nil
	}

	switch n := n.(type) {
	case nil:
		return &shortNode{Key: key, Val: value, flags: nodeFlag{dirty: true}}, nil

	case *shortNode:
		matchLen := prefixLen(key, n.Key)
		if matchLen == len(n.Key) {
			nn, err := t.insert(n.Val, key[matchLen:], value)
			if err != nil {
				return nil, err
			}
			if v, ok := n.Val.(valueNode); ok {
				if keysEqual(v, nn.(valueNode)) {
					return n, nil
				}
			} else if nn == n.Val {
				return n, nil
			}
			return &shortNode{Key: n.Key, Val: nn, flags: nodeFlag{dirty: true}}, nil
		}
		branch := &fullNode{flags: nodeFlag{dirty: true}}
		existingChild, err := t.insert(nil, n.Key[matchLen+1:], n.Val)
		if err != nil {
			return nil, err
		}
		branch.Children[n.Key[matchLen]] = existingChild
		newChild, err := t.insert(nil, key[matchLen+1:], value)
		if err != nil {
			return nil, err
		}
		branch.Children[key[matchLen]] = newChild
		if matchLen > 0 {
			return &shortNode{Key: key[:matchLen], Val: branch, flags: nodeFlag{dirty: true}}, nil
		}
		return branch, nil

	case *fullNode:
		if key[0] == terminatorByte {
			child, err := t.insert(n.Children[16], nil, value)
			if err != nil {
				return nil, err
			}
			if old, ok := n.Children[16].(valueNode); ok && keysEqual(old, child.(valueNode)) {
				return n, nil
			}
			nn := n.copy()
			nn.flags = nodeFlag{dirty: true}
			nn.Children[16] = child
			return nn, nil
		}
		child, err := t.insert(n.Children[key[0]], key[1:], value)
		if err != nil {
			return nil, err
		}
		if child == n.Children[key[0]] {
			return n, nil
		}
		nn := n.copy()
		nn.flags = nodeFlag{dirty: true}
		nn.Children[key[0]] = child
		return nn, nil

	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.insert(resolved, key, value)

	default:
		return nil, ErrInvalidState
	}
}

// Delete removes key. A missing key is a no-op (spec §4.4).
func (t *Trie) Delete(key []byte) error {
	if t.committed {
		return ErrAlreadyCommitted
	}
	n, err := t.delete(t.root, keybytesToHex(key))
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) delete(n node, key []byte) (node, error) {
	switch n := n.(type) {
	case nil:
		return nil, nil

	case valueNode:
		return nil, nil

	case *shortNode:
		matchLen := prefixLen(key, n.Key)
		if matchLen < len(n.Key) {
			return n, nil
		}
		if matchLen == len(key) {
			t.markDeleted(n)
			return nil, nil
		}
		child, err := t.delete(n.Val, key[len(n.Key):])
		if err != nil {
			return nil, err
		}
		switch child := child.(type) {
		case nil:
			t.markDeleted(n)
			return nil, nil
		case *shortNode:
			t.markDeleted(n)
			t.markDeleted(child)
			return &shortNode{Key: concat(n.Key, child.Key), Val: child.Val, flags: nodeFlag{dirty: true}}, nil
		default:
			if child == n.Val {
				return n, nil
			}
			return &shortNode{Key: n.Key, Val: child, flags: nodeFlag{dirty: true}}, nil
		}

	case *fullNode:
		var slot byte
		if len(key) == 0 {
			slot = 16
		} else {
			slot = key[0]
		}
		var rest []byte
		if slot != 16 {
			rest = key[1:]
		}
		child, err := t.delete(n.Children[slot], rest)
		if err != nil {
			return nil, err
		}
		if child == n.Children[slot] {
			return n, nil
		}
		nn := n.copy()
		nn.flags = nodeFlag{dirty: true}
		nn.Children[slot] = child

		count, remaining := nn.indexChildren()
		if count > 1 {
			return nn, nil
		}
		if count == 0 {
			t.markDeleted(n)
			return nil, nil
		}
		if remaining == 16 {
			t.markDeleted(n)
			return &shortNode{Key: []byte{terminatorByte}, Val: nn.Children[16], flags: nodeFlag{dirty: true}}, nil
		}
		sole := nn.Children[remaining]
		if hn, ok := sole.(hashNode); ok {
			resolved, err := t.resolveHash(hn)
			if err != nil {
				return nil, err
			}
			sole = resolved
		}
		t.markDeleted(n)
		if cnode, ok := sole.(*shortNode); ok {
			t.markDeleted(cnode)
			return &shortNode{Key: concat([]byte{byte(remaining)}, cnode.Key), Val: cnode.Val, flags: nodeFlag{dirty: true}}, nil
		}
		return &shortNode{Key: []byte{byte(remaining)}, Val: sole, flags: nodeFlag{dirty: true}}, nil

	case hashNode:
		resolved, err := t.resolveHash(n)
		if err != nil {
			return nil, err
		}
		return t.delete(resolved, key)

	default:
		return nil, ErrInvalidState
	}
}

// markDeleted records n in the tracer if it was previously persisted (a
// cached, clean hash), so Commit can fold the count of obsoleted node blobs
// into the resulting NodeSet's DeletesCount.
func (t *Trie) markDeleted(n node) {
	switch n := n.(type) {
	case *shortNode:
		if hash, dirty := n.cache(); hash != nil && !dirty {
			t.tracer.onDelete(hash)
		}
	case *fullNode:
		if hash, dirty := n.cache(); hash != nil && !dirty {
			t.tracer.onDelete(hash)
		}
	}
}

// Hash computes the state root without committing. Repeated calls are
// idempotent until further mutation (spec §4.4).
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return emptyRoot
	}
	h := newHasher(t.dirtyEstimate())
	hashed, cached := h.hash(t.root)
	t.root = cached
	if hn, ok := hashed.(hashNode); ok {
		return common.BytesToHash(hn)
	}
	return crypto.Keccak256Hash(encodeNode(hashed))
}

// dirtyEstimate returns a cheap, early-exiting estimate of how many dirty
// nodes hang off the root, used to decide whether the hasher's top-level
// fan-out threshold (spec §4.5, ~100 nodes) is worth the goroutine cost.
func (t *Trie) dirtyEstimate() int {
	const cap = parallelThreshold + 1
	var count int
	var walk func(n node)
	walk = func(n node) {
		if count >= cap {
			return
		}
		switch n := n.(type) {
		case *shortNode:
			if _, dirty := n.cache(); dirty {
				count++
			}
			walk(n.Val)
		case *fullNode:
			if _, dirty := n.cache(); dirty {
				count++
			}
			for i := 0; i < 17 && count < cap; i++ {
				walk(n.Children[i])
			}
		}
	}
	walk(t.root)
	return count
}

// Commit hashes and persists dirty nodes via db's batch interface, and
// returns the resulting root plus change set. After this call the trie is
// committed; further mutating calls return ErrAlreadyCommitted (spec §4.4,
// §4.6, component C6).
func (t *Trie) Commit(db *Database, collectLeaves bool) (common.Hash, *NodeSet, error) {
	if t.committed {
		return common.Hash{}, nil, ErrAlreadyCommitted
	}
	set := NewNodeSet(t.id.Owner)
	set.DeletesCount = t.tracer.len()
	if t.root == nil {
		t.committed = true
		return emptyRoot, set, nil
	}

	c := newCommitter(set, collectLeaves, t.dirtyEstimate())
	hashed, cached, err := c.commit(t.root, nil)
	if err != nil {
		return common.Hash{}, nil, err
	}
	t.root = cached

	var root common.Hash
	switch n := hashed.(type) {
	case hashNode:
		root = common.BytesToHash(n)
	default:
		enc := encodeNode(n)
		root = crypto.Keccak256Hash(enc)
		set.addNode(nil, root, enc)
	}

	batch := db.NewBatch()
	for _, info := range set.Nodes {
		if err := batch.Put(info.Hash, info.Blob); err != nil {
			return common.Hash{}, nil, err
		}
	}
	if err := batch.Write(); err != nil {
		return common.Hash{}, nil, err
	}

	t.committed = true
	return root, set, nil
}

// Len returns the number of key-value pairs in the trie. O(n); resolves no
// hash nodes (unresolved subtrees are skipped, matching an in-memory view).
func (t *Trie) Len() int {
	return countValues(t.root)
}

// Empty reports whether the trie currently has no entries materialized.
func (t *Trie) Empty() bool {
	return t.root == nil
}

func countValues(n node) int {
	switch n := n.(type) {
	case nil:
		return 0
	case valueNode:
		return 1
	case *shortNode:
		return countValues(n.Val)
	case *fullNode:
		count := 0
		for i := 0; i < 17; i++ {
			count += countValues(n.Children[i])
		}
		return count
	default:
		return 0
	}
}

func keysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func concat(a, b []byte) []byte {
	r := make([]byte, len(a)+len(b))
	copy(r, a)
	copy(r[len(a):], b)
	return r
}
