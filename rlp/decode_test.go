package rlp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	A uint64
	B []byte
	C *big.Int
}

func TestDecodeStructRoundTrip(t *testing.T) {
	in := testStruct{A: 42, B: []byte("hello"), C: big.NewInt(123456789)}
	enc, err := EncodeToBytes(in)
	require.NoError(t, err)

	var out testStruct
	require.NoError(t, DecodeBytes(enc, &out))
	require.Equal(t, in.A, out.A)
	require.Equal(t, in.B, out.B)
	require.Equal(t, 0, in.C.Cmp(out.C))
}

func TestDecodeSliceOfBytes(t *testing.T) {
	in := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}
	enc, err := EncodeToBytes(in)
	require.NoError(t, err)

	var out [][]byte
	require.NoError(t, DecodeBytes(enc, &out))
	require.Equal(t, in, out)
}

func TestStreamListReadWriteBoundary(t *testing.T) {
	enc, err := EncodeToBytes([]uint64{1, 2, 3})
	require.NoError(t, err)

	s := newByteStream(enc)
	size, err := s.List()
	require.NoError(t, err)
	require.Greater(t, size, uint64(0))

	var got []uint64
	for i := 0; i < 3; i++ {
		u, err := s.Uint64()
		require.NoError(t, err)
		got = append(got, u)
	}
	require.NoError(t, s.ListEnd())
	require.Equal(t, []uint64{1, 2, 3}, got)
}

func TestSplitListAndSplitString(t *testing.T) {
	enc, err := EncodeToBytes([]uint64{1, 2})
	require.NoError(t, err)

	payload, rest, err := SplitList(enc)
	require.NoError(t, err)
	require.Empty(t, rest)

	content, rest, err := SplitString(payload)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, content)

	content, rest, err = SplitString(rest)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02}, content)
	require.Empty(t, rest)
}

func TestCountListItems(t *testing.T) {
	two, err := EncodeToBytes([]string{"a", "b"})
	require.NoError(t, err)
	payload, _, err := SplitList(two)
	require.NoError(t, err)
	n, err := CountListItems(payload)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	seventeen := make([]string, 17)
	for i := range seventeen {
		seventeen[i] = ""
	}
	enc17, err := EncodeToBytes(seventeen)
	require.NoError(t, err)
	payload17, _, err := SplitList(enc17)
	require.NoError(t, err)
	n, err = CountListItems(payload17)
	require.NoError(t, err)
	require.Equal(t, 17, n)
}

func TestDecodeRejectsNonCanonicalInt(t *testing.T) {
	// A single byte in [0x00, 0x7f] must be encoded as itself, not wrapped
	// in a one-byte string header.
	nonCanon := []byte{0x81, 0x01}
	_, err := newByteStream(nonCanon).Bytes()
	require.ErrorIs(t, err, ErrCanonSize)
}

func TestDecodeEmptyBytes(t *testing.T) {
	var out []byte
	require.NoError(t, DecodeBytes([]byte{0x80}, &out))
	require.Empty(t, out)
}
