package trie

// Iterator walks every key-value pair of a trie in lexicographic key order,
// resolving Hash nodes against the trie's reader as it goes (component C4
// supplement). Usage:
//
//	it := NewIterator(t)
//	for it.Next() {
//	    useKey(it.Key)
//	    useValue(it.Value)
//	}
//	if err := it.Err(); err != nil {
//	    // handle error
//	}
type Iterator struct {
	trie  *Trie
	Key   []byte // raw byte key (not hex nibbles)
	Value []byte

	stack []iterFrame
	err   error
}

// iterFrame is one level of the depth-first traversal stack.
type iterFrame struct {
	node  node
	path  []byte // hex nibble path accumulated so far
	index int    // fullNode: next slot to visit (0 = value, 1-16 = children); shortNode: 0 or 1
}

// NewIterator starts a depth-first iterator over t. The iterator begins
// before the first element; call Next to advance.
func NewIterator(t *Trie) *Iterator {
	it := &Iterator{trie: t}
	if t.root != nil {
		it.stack = []iterFrame{{node: t.root, path: nil, index: 0}}
	}
	return it
}

// Next advances to the next key-value pair, reporting whether one exists.
func (it *Iterator) Next() bool {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]

		switch n := top.node.(type) {
		case *shortNode:
			if top.index > 0 {
				it.stack = it.stack[:len(it.stack)-1]
				continue
			}
			top.index = 1
			childPath := concat(top.path, n.Key)

			if v, ok := n.Val.(valueNode); ok {
				it.Key = hexToKeybytes(trimTerm(childPath))
				it.Value = append([]byte(nil), v...)
				return true
			}
			it.stack = append(it.stack, iterFrame{node: n.Val, path: childPath, index: 0})

		case *fullNode:
			found := false
			for top.index <= 16 {
				idx := top.index
				top.index++

				if idx == 0 {
					if v, ok := n.Children[16].(valueNode); ok {
						if len(top.path)%2 != 0 {
							continue
						}
						it.Key = hexToKeybytes(top.path)
						it.Value = append([]byte(nil), v...)
						return true
					}
					continue
				}

				childIdx := idx - 1
				child := n.Children[childIdx]
				if child == nil {
					continue
				}
				it.stack = append(it.stack, iterFrame{
					node:  child,
					path:  concat(top.path, []byte{byte(childIdx)}),
					index: 0,
				})
				found = true
				break
			}
			if !found {
				it.stack = it.stack[:len(it.stack)-1]
			}

		case valueNode:
			it.stack = it.stack[:len(it.stack)-1]
			if len(top.path)%2 != 0 && !hasTerm(top.path) {
				continue
			}
			it.Key = hexToKeybytes(trimTerm(top.path))
			it.Value = append([]byte(nil), n...)
			return true

		case hashNode:
			resolved, err := it.trie.resolveHash(n)
			if err != nil {
				it.err = err
				it.stack = it.stack[:0]
				return false
			}
			top.node = resolved

		default:
			it.stack = it.stack[:len(it.stack)-1]
		}
	}
	return false
}

// Err returns any error encountered during iteration, typically a backend
// failure while resolving a hash node.
func (it *Iterator) Err() error {
	return it.err
}

// NodeCount reports how many frames remain on the traversal stack, a rough
// progress signal for long-running dumps.
func (it *Iterator) NodeCount() int {
	return len(it.stack)
}

func trimTerm(path []byte) []byte {
	if hasTerm(path) {
		return path[:len(path)-1]
	}
	return path
}
