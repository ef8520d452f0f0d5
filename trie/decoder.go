package trie

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/ethcore/triedb/rlp"
)

// ErrDecodeInvalid is returned when a stored node's bytes do not parse as a
// canonical 2- or 17-element RLP list.
var ErrDecodeInvalid = errors.New("trie: invalid encoded node")

// ErrOversizedNode is returned when a child reference slot is neither empty
// nor exactly 32 bytes. Node references between persisted nodes are always
// by hash; an embedded sub-node in that slot means the data was never
// produced by this trie's own hasher/committer.
var ErrOversizedNode = errors.New("trie: embedded node must be empty or exactly 32 bytes")

// decodeNode decodes an RLP-encoded trie node. hash is the node's expected
// reference hash, cached on the resulting node so re-hashing can short
// circuit.
func decodeNode(hash hashNode, data []byte) (node, error) {
	if len(data) == 0 {
		return nil, ErrDecodeInvalid
	}
	elems, err := decodeElements(data)
	if err != nil {
		return nil, errors.Wrap(err, "trie: decode node")
	}
	switch len(elems) {
	case 2:
		return decodeShort(hash, elems)
	case 17:
		return decodeFull(hash, elems)
	default:
		return nil, errors.Wrapf(ErrDecodeInvalid, "expected 2 or 17 elements, got %d", len(elems))
	}
}

// decodeShort decodes a 2-element RLP list into a shortNode.
func decodeShort(hash hashNode, elems [][]byte) (node, error) {
	key := compactToHex(elems[0])
	if hasTerm(key) {
		return &shortNode{
			Key:   key,
			Val:   valueNode(elems[1]),
			flags: nodeFlag{hash: hash},
		}, nil
	}
	child, err := decodeRef(elems[1])
	if err != nil {
		return nil, err
	}
	return &shortNode{
		Key:   key,
		Val:   child,
		flags: nodeFlag{hash: hash},
	}, nil
}

// decodeFull decodes a 17-element RLP list into a fullNode.
func decodeFull(hash hashNode, elems [][]byte) (node, error) {
	n := &fullNode{flags: nodeFlag{hash: hash}}
	for i := 0; i < 16; i++ {
		if len(elems[i]) == 0 {
			continue
		}
		child, err := decodeRef(elems[i])
		if err != nil {
			return nil, err
		}
		n.Children[i] = child
	}
	if len(elems[16]) > 0 {
		n.Children[16] = valueNode(elems[16])
	}
	return n, nil
}

// decodeRef decodes a child node reference: either empty or a 32-byte hash.
// Anything else is rejected rather than decoded as an embedded sub-node.
func decodeRef(data []byte) (node, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) == 32 {
		return hashNode(data), nil
	}
	return nil, errors.Wrapf(ErrOversizedNode, "got %d bytes", len(data))
}

// decodeElements splits a top-level RLP list into its element byte slices.
// List elements are returned with their own header intact; nothing decodes
// them as inline nodes (decodeRef rejects any child that is not empty or a
// 32-byte hash). String elements are returned as their raw content.
func decodeElements(data []byte) ([][]byte, error) {
	payload, rest, err := rlp.SplitList(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, errors.Wrap(ErrDecodeInvalid, "trailing bytes after top-level list")
	}
	var elems [][]byte
	for len(payload) > 0 {
		elem, next, err := decodeOneElement(payload)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		payload = next
	}
	return elems, nil
}

// decodeOneElement reads one RLP element from the front of data, returning
// its content (full encoding for lists, bare content for strings) and the
// remaining bytes.
func decodeOneElement(data []byte) (content, rest []byte, err error) {
	if len(data) == 0 {
		return nil, nil, ErrDecodeInvalid
	}
	if data[0] >= 0xc0 {
		_, r, err := rlp.SplitList(data)
		if err != nil {
			return nil, nil, err
		}
		// Re-derive how many bytes the list's own encoding occupied so the
		// caller gets the full (header included) bytes.
		total := len(data) - len(r)
		return data[:total], r, nil
	}
	content, rest, err = rlp.SplitString(data)
	if err != nil {
		return nil, nil, fmt.Errorf("trie: decode element: %w", err)
	}
	return content, rest, nil
}
