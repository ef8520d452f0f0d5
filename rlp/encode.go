// Package rlp implements Recursive Length Prefix encoding, the wire format
// the trie engine uses to serialize node and value bytes before hashing
// them (spec §4.2). It supports the subset of Go types the trie and
// surrounding packages actually need: byte slices/arrays, unsigned
// integers, booleans, and slices/structs built from those.
package rlp

import (
	"io"
	"math/big"
	"reflect"
)

// Encode writes the RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	b, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// EncodeToBytes returns the RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	return appendValue(nil, reflect.ValueOf(val))
}

// appendValue RLP-encodes v and appends the result to dst, returning the
// grown slice. Every case below appends directly into the accumulator
// instead of allocating and concatenating a fresh slice per call.
func appendValue(dst []byte, v reflect.Value) ([]byte, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return append(dst, 0x80), nil
		}
		v = v.Elem()
	}

	if v.Type() == reflect.TypeOf(big.Int{}) {
		bi := v.Addr().Interface().(*big.Int)
		return appendBigInt(dst, bi), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return append(dst, 0x01), nil
		}
		return append(dst, 0x80), nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return appendUint(dst, v.Uint()), nil

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return appendUint(dst, uint64(v.Int())), nil

	case reflect.String:
		return AppendBytes(dst, []byte(v.String())), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return AppendBytes(dst, v.Bytes()), nil
		}
		return appendList(dst, v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			for i := 0; i < v.Len(); i++ {
				b[i] = byte(v.Index(i).Uint())
			}
			return AppendBytes(dst, b), nil
		}
		return appendList(dst, v)

	case reflect.Struct:
		return appendStruct(dst, v)

	case reflect.Invalid:
		return append(dst, 0x80), nil

	default:
		return nil, ErrValueTooLarge
	}
}

func appendUint(dst []byte, u uint64) []byte {
	if u == 0 {
		return append(dst, 0x80)
	}
	if u < 128 {
		return append(dst, byte(u))
	}
	return AppendBytes(dst, putUintBigEndian(u))
}

func appendBigInt(dst []byte, i *big.Int) []byte {
	if i.Sign() == 0 {
		return append(dst, 0x80)
	}
	return AppendBytes(dst, i.Bytes())
}

// appendPayload RLP-encodes count fields, read via field(i), into a fresh
// payload buffer, then wraps it with a list header appended to dst. The
// payload has to be assembled separately from dst because its header needs
// the total encoded length up front.
func appendPayload(dst []byte, count int, field func(int) reflect.Value) ([]byte, error) {
	var payload []byte
	var err error
	for i := 0; i < count; i++ {
		payload, err = appendValue(payload, field(i))
		if err != nil {
			return nil, err
		}
	}
	return appendWrappedList(dst, payload), nil
}

func appendList(dst []byte, v reflect.Value) ([]byte, error) {
	return appendPayload(dst, v.Len(), v.Index)
}

func appendStruct(dst []byte, v reflect.Value) ([]byte, error) {
	t := v.Type()
	var fields []int
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			fields = append(fields, i)
		}
	}
	return appendPayload(dst, len(fields), func(i int) reflect.Value { return v.Field(fields[i]) })
}

// WrapList wraps an already RLP-encoded payload in a list header. Callers
// that hand-assemble list payloads from pre-encoded items (the trie node
// encoder does, to avoid reflection on its own node types) use this instead
// of going through appendValue.
func WrapList(payload []byte) []byte {
	return appendWrappedList(nil, payload)
}

// appendWrappedList appends payload's list header followed by payload
// itself to dst, reusing the shared header-framing logic in
// encoder_pool.go rather than re-implementing it here.
func appendWrappedList(dst, payload []byte) []byte {
	dst = AppendListHeader(dst, len(payload))
	return append(dst, payload...)
}

func putUintBigEndian(u uint64) []byte {
	switch {
	case u < (1 << 8):
		return []byte{byte(u)}
	case u < (1 << 16):
		return []byte{byte(u >> 8), byte(u)}
	case u < (1 << 24):
		return []byte{byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 32):
		return []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 40):
		return []byte{byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 48):
		return []byte{byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	case u < (1 << 56):
		return []byte{byte(u >> 48), byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	default:
		return []byte{byte(u >> 56), byte(u >> 48), byte(u >> 40), byte(u >> 32), byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	}
}
