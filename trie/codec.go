package trie

import "github.com/ethcore/triedb/rlp"

// encodeNode RLP-encodes a trie node for hashing/storage.
//
//	shortNode => 2-element list [compactKey, val]
//	fullNode  => 17-element list [child0..child15, value]
func encodeNode(n node) []byte {
	switch n := n.(type) {
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	case hashNode:
		return []byte(n)
	case valueNode:
		return rlp.AppendBytes(nil, []byte(n))
	default:
		return nil
	}
}

// encodeShortNode encodes a short node as a 2-element RLP list. n.Key is in
// hex-nibble form and is compact (hex-prefix) encoded here.
func encodeShortNode(n *shortNode) []byte {
	keyEnc := rlp.AppendBytes(nil, hexToCompact(n.Key))
	valEnc := encodeNodeValue(n.Val)
	payload := make([]byte, 0, len(keyEnc)+len(valEnc))
	payload = append(payload, keyEnc...)
	payload = append(payload, valEnc...)
	return rlp.WrapList(payload)
}

// encodeFullNode encodes a full node as a 17-element RLP list.
func encodeFullNode(n *fullNode) []byte {
	var payload []byte
	for i := 0; i < 17; i++ {
		payload = append(payload, encodeNodeValue(n.Children[i])...)
	}
	return rlp.WrapList(payload)
}

// encodeNodeValue encodes a node for inclusion in a parent node's RLP:
//   - nil => RLP empty string
//   - valueNode/hashNode => RLP string of the raw bytes
//   - *shortNode/*fullNode => encoded directly; the hasher/committer always
//     replace a child with its hashNode before encoding the parent, so this
//     case is only reached when encoding an uncollapsed node directly
func encodeNodeValue(n node) []byte {
	if n == nil {
		return []byte{0x80}
	}
	switch n := n.(type) {
	case valueNode:
		return rlp.AppendBytes(nil, []byte(n))
	case hashNode:
		return rlp.AppendBytes(nil, []byte(n))
	case *shortNode:
		return encodeShortNode(n)
	case *fullNode:
		return encodeFullNode(n)
	default:
		return []byte{0x80}
	}
}
