package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcore/triedb/crypto"
)

// buildDirtyRoot constructs a root fullNode with all sixteen children dirty
// shortNode leaves.
func buildDirtyRoot() *fullNode {
	root := &fullNode{flags: nodeFlag{dirty: true}}
	for i := 0; i < 16; i++ {
		root.Children[i] = &shortNode{
			Key:   []byte{byte(i), byte(i + 1), terminatorByte},
			Val:   valueNode(crypto.Keccak256([]byte{byte(i)})),
			flags: nodeFlag{dirty: true},
		}
	}
	return root
}

// TestHasherParallelMatchesSequential verifies spec §4.5/§8 property 8: a
// parallel hasher's top-level fan-out produces a byte-identical result to
// the sequential path for the same dirty root.
func TestHasherParallelMatchesSequential(t *testing.T) {
	seqHasher := &hasher{parallel: false}
	seqHashed, _ := seqHasher.hash(buildDirtyRoot())

	parHasher := &hasher{parallel: true}
	parHashed, _ := parHasher.hash(buildDirtyRoot())

	require.Equal(t, seqHashed, parHashed)
}

// TestNewHasherThreshold verifies the fan-out decision itself: only dirty
// counts strictly above parallelThreshold enable the parallel path.
func TestNewHasherThreshold(t *testing.T) {
	require.False(t, newHasher(parallelThreshold).parallel)
	require.True(t, newHasher(parallelThreshold+1).parallel)
}

// TestHashIdempotentOnCleanNode verifies a node whose cache is already
// populated and not dirty is returned unchanged, not re-hashed.
func TestHashIdempotentOnCleanNode(t *testing.T) {
	h := &hasher{}
	n := &shortNode{Key: []byte{1, terminatorByte}, Val: valueNode("v")}
	hashed1, cached1 := h.hash(n)
	hashed2, cached2 := h.hash(cached1)
	require.Equal(t, hashed1, hashed2)
	_ = cached2
}
