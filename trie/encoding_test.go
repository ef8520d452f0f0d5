package trie

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestKeybytesRoundTrip verifies spec §8 property 2: nibbles_to_bytes(
// bytes_to_nibbles(b)) == b for every byte sequence, with the terminator
// always present since keybytesToHex always produces a leaf key.
func TestKeybytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 0; n < 200; n++ {
		b := make([]byte, r.Intn(40))
		r.Read(b)
		hex := keybytesToHex(b)
		require.True(t, hasTerm(hex), "keybytesToHex must always terminate")
		back := hexToKeybytes(hex)
		require.True(t, bytes.Equal(b, back), "round trip mismatch for %x", b)
	}
}

// TestHexCompactRoundTrip verifies spec §8 property 3: decode_compact(
// encode_compact(n)) == n for nibble sequences with and without a
// terminator, covering both parities.
func TestHexCompactRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for n := 0; n < 200; n++ {
		length := r.Intn(17)
		nibbles := make([]byte, length)
		for i := range nibbles {
			nibbles[i] = byte(r.Intn(16))
		}
		leaf := r.Intn(2) == 0
		in := append([]byte(nil), nibbles...)
		if leaf {
			in = append(in, terminatorByte)
		}
		compact := hexToCompact(in)
		out := compactToHex(compact)
		require.Equal(t, in, out, "HP round trip mismatch for %v (leaf=%v)", nibbles, leaf)
	}
}

// TestHexCompactKnownVectors pins the specific parity/terminator encoding
// rules from spec §4.1 against the Yellow Paper's worked examples.
func TestHexCompactKnownVectors(t *testing.T) {
	cases := []struct {
		hex  []byte
		want []byte
	}{
		{[]byte{1, 2, 3, 4, 5}, []byte{0x11, 0x23, 0x45}},
		{[]byte{0, 1, 2, 3, 4, 5}, []byte{0x00, 0x01, 0x23, 0x45}},
		{[]byte{0, 15, 1, 12, 11, 8, terminatorByte}, []byte{0x20, 0x0f, 0x1c, 0xb8}},
		{[]byte{15, 1, 12, 11, 8, terminatorByte}, []byte{0x3f, 0x1c, 0xb8}},
	}
	for _, c := range cases {
		got := hexToCompact(c.hex)
		require.Equal(t, c.want, got)
		require.Equal(t, c.hex, compactToHex(got))
	}
}

func TestPrefixLen(t *testing.T) {
	require.Equal(t, 0, prefixLen(nil, []byte{1}))
	require.Equal(t, 3, prefixLen([]byte{1, 2, 3, 4}, []byte{1, 2, 3}))
	require.Equal(t, 2, prefixLen([]byte{1, 2, 9}, []byte{1, 2, 8}))
}

func TestHasTerm(t *testing.T) {
	require.False(t, hasTerm(nil))
	require.False(t, hasTerm([]byte{1, 2, 3}))
	require.True(t, hasTerm([]byte{1, 2, terminatorByte}))
}
