// encoder_pool.go provides a sync.Pool of scratch buffers for callers that
// build many RLP lists concurrently, plus the AppendBytes/AppendListHeader
// framing helpers that encode.go builds on. The trie's node encoder
// (trie/codec.go) uses those helpers but not the pool.
package rlp

import (
	"sync"
	"sync/atomic"
)

const (
	defaultBufSize = 512
	maxBufSize     = 1 << 20 // 1 MiB
)

// EncoderMetrics tracks encoder pool usage.
type EncoderMetrics struct {
	PoolHits     atomic.Int64
	PoolMisses   atomic.Int64
	TotalEncodes atomic.Int64
	TotalBytes   atomic.Int64
}

// Snapshot returns a point-in-time copy of the encoder metrics.
func (m *EncoderMetrics) Snapshot() EncoderMetricsSnapshot {
	return EncoderMetricsSnapshot{
		PoolHits:     m.PoolHits.Load(),
		PoolMisses:   m.PoolMisses.Load(),
		TotalEncodes: m.TotalEncodes.Load(),
		TotalBytes:   m.TotalBytes.Load(),
	}
}

// EncoderMetricsSnapshot is a frozen copy of EncoderMetrics values.
type EncoderMetricsSnapshot struct {
	PoolHits     int64
	PoolMisses   int64
	TotalEncodes int64
	TotalBytes   int64
}

// EncoderPool hands out reusable scratch buffers for building RLP list
// payloads (node encoding in particular).
type EncoderPool struct {
	pool    sync.Pool
	metrics EncoderMetrics
}

// NewEncoderPool creates a new encoder pool.
func NewEncoderPool() *EncoderPool {
	ep := &EncoderPool{}
	ep.pool.New = func() interface{} {
		ep.metrics.PoolMisses.Add(1)
		return &encoderBuf{data: make([]byte, 0, defaultBufSize)}
	}
	return ep
}

// Metrics returns the pool's usage metrics.
func (ep *EncoderPool) Metrics() *EncoderMetrics {
	return &ep.metrics
}

type encoderBuf struct {
	data   []byte
	reused bool // set once the buffer has been returned via Put
}

// Get retrieves a zeroed scratch buffer from the pool. The caller must call
// Put when done with it.
func (ep *EncoderPool) Get() *encoderBuf {
	buf := ep.pool.Get().(*encoderBuf)
	if buf.reused {
		ep.metrics.PoolHits.Add(1)
	}
	buf.data = buf.data[:0]
	return buf
}

// Put returns a scratch buffer to the pool, discarding oversized ones.
func (ep *EncoderPool) Put(buf *encoderBuf) {
	if cap(buf.data) > maxBufSize {
		return
	}
	buf.reused = true
	ep.pool.Put(buf)
}

// Append appends p to the buffer's backing slice.
func (b *encoderBuf) Append(p []byte) { b.data = append(b.data, p...) }

// Bytes returns the buffer's current contents.
func (b *encoderBuf) Bytes() []byte { return b.data }

// EncodeList RLP-encodes a list built from pre-encoded items using a pooled
// scratch buffer, returning an independently-owned copy.
func (ep *EncoderPool) EncodeList(items [][]byte) []byte {
	buf := ep.Get()
	defer ep.Put(buf)
	for _, it := range items {
		buf.Append(it)
	}
	result := WrapList(buf.data)
	ep.metrics.TotalEncodes.Add(int64(len(items)))
	ep.metrics.TotalBytes.Add(int64(len(result)))
	out := make([]byte, len(result))
	copy(out, result)
	return out
}

// EncodeUint64 encodes a uint64 using zero-copy fixed-size encoding,
// avoiding the reflection overhead of the general encoder.
func EncodeUint64(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	if v < 128 {
		return []byte{byte(v)}
	}
	b := putUintBigEndian(v)
	buf := make([]byte, 1+len(b))
	buf[0] = 0x80 + byte(len(b))
	copy(buf[1:], b)
	return buf
}

// AppendBytes appends the RLP string encoding of data to dst.
func AppendBytes(dst, data []byte) []byte {
	n := len(data)
	if n == 1 && data[0] <= 0x7f {
		return append(dst, data[0])
	}
	if n <= 55 {
		dst = append(dst, 0x80+byte(n))
		return append(dst, data...)
	}
	lb := putUintBigEndian(uint64(n))
	dst = append(dst, 0xb7+byte(len(lb)))
	dst = append(dst, lb...)
	return append(dst, data...)
}

// AppendListHeader appends an RLP list header for a payload of the given
// size. The caller must append exactly payloadSize bytes of already-encoded
// items right after.
func AppendListHeader(dst []byte, payloadSize int) []byte {
	if payloadSize <= 55 {
		return append(dst, 0xc0+byte(payloadSize))
	}
	lb := putUintBigEndian(uint64(payloadSize))
	dst = append(dst, 0xf7+byte(len(lb)))
	return append(dst, lb...)
}

// EstimateListSize returns an estimate of the RLP-encoded size of a list
// with the given total payload size, for pre-sizing buffers.
func EstimateListSize(payloadSize int) int {
	if payloadSize <= 55 {
		return 1 + payloadSize
	}
	return 1 + uintByteLen(uint64(payloadSize)) + payloadSize
}

func uintByteLen(u uint64) int {
	switch {
	case u < (1 << 8):
		return 1
	case u < (1 << 16):
		return 2
	case u < (1 << 24):
		return 3
	case u < (1 << 32):
		return 4
	case u < (1 << 40):
		return 5
	case u < (1 << 48):
		return 6
	case u < (1 << 56):
		return 7
	default:
		return 8
	}
}
