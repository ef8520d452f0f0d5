package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/crypto"
)

// TestCommitterParallelMatchesSequential verifies spec §4.6/§9's parallel
// commit ownership rule: committing a dirty root fullNode sequentially and
// in parallel produces byte-identical roots and equal NodeSets, the child
// sets having been merged on the single join goroutine rather than shared
// under a lock.
func TestCommitterParallelMatchesSequential(t *testing.T) {
	seqSet := NewNodeSet(common.Hash{})
	seqCommitter := &committer{set: seqSet, parallel: false}
	seqHashed, _, err := seqCommitter.commit(buildDirtyRoot(), nil)
	require.NoError(t, err)

	parSet := NewNodeSet(common.Hash{})
	parCommitter := &committer{set: parSet, parallel: true}
	parHashed, _, err := parCommitter.commit(buildDirtyRoot(), nil)
	require.NoError(t, err)

	require.Equal(t, seqHashed, parHashed)
	require.Equal(t, len(seqSet.Nodes), len(parSet.Nodes))
	for path, info := range seqSet.Nodes {
		other, ok := parSet.Nodes[path]
		require.True(t, ok)
		require.Equal(t, info.Hash, other.Hash)
		require.Equal(t, info.Blob, other.Blob)
	}
}

// TestNewCommitterThreshold mirrors the hasher's fan-out decision test for
// the committer.
func TestNewCommitterThreshold(t *testing.T) {
	set := NewNodeSet(common.Hash{})
	require.False(t, newCommitter(set, false, parallelThreshold).parallel)
	require.True(t, newCommitter(set, false, parallelThreshold+1).parallel)
}

// TestCommitCollectsLeaves verifies collectLeaves=true records every
// value-node path visited.
func TestCommitCollectsLeaves(t *testing.T) {
	root := &shortNode{
		Key:   []byte{1, 2, terminatorByte},
		Val:   valueNode(crypto.Keccak256([]byte("leaf"))),
		flags: nodeFlag{dirty: true},
	}
	set := NewNodeSet(common.Hash{})
	c := newCommitter(set, true, 0)
	_, _, err := c.commit(root, nil)
	require.NoError(t, err)
	require.Len(t, set.Leaves, 1)
	require.Equal(t, []byte{1, 2, terminatorByte}, set.Leaves[0].Path)
}
