package trie

import "github.com/cockroachdb/errors"

// Error taxonomy (spec §7): every failure surfaces as one of these typed
// sentinels (wrapped with errors.Wrap for context), never a bare string.
var (
	// ErrAlreadyCommitted is returned by any mutating call on a trie that
	// has already produced a NodeSet via Commit.
	ErrAlreadyCommitted = errors.New("trie: already committed")

	// ErrInvalidState indicates a broken structural invariant detected at
	// runtime (e.g. a Short node with an empty key). It indicates a bug in
	// the caller or a corrupted store, not a transient condition.
	ErrInvalidState = errors.New("trie: invalid state")

	// ErrInvalidInput is the category for malformed keys or caller-supplied
	// values. No function in this module returns it: the trie accepts any
	// byte key and treats an empty value as a delete.
	ErrInvalidInput = errors.New("trie: invalid input")

	// ErrCancelled is the category for a cancelled prefetch. The prefetch
	// tasks do not return it: on observing the shared cancel flag they stop
	// and report what they warmed, so it never reaches the executor.
	ErrCancelled = errors.New("trie: prefetch cancelled")
)

// DecodeError wraps an RLP decode failure for a specific node hash,
// satisfying spec §7's "Decode" error category.
type DecodeError struct {
	Hash []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return errors.Wrapf(e.Err, "trie: decode node %x", e.Hash).Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DatabaseError wraps a backend I/O failure encountered while resolving or
// persisting a node, satisfying spec §7's "Database" error category.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return errors.Wrapf(e.Err, "trie: database %s", e.Op).Error()
}

func (e *DatabaseError) Unwrap() error { return e.Err }
