package trie

import (
	"math/big"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/crypto"
	"github.com/ethcore/triedb/rlp"
)

// StateAccount is the RLP-encoded payload stored at an account's leaf in the
// account trie: everything the prefetcher (component C9) and the execution
// pipeline need to locate an account's storage trie and bytecode. This is
// the minimal account model required by this module's scope (spec §4.9
// "resolve the account's storage root") — balance/nonce accounting and code
// execution themselves are out of scope (spec §1).
type StateAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // storage trie root
	CodeHash []byte
}

// EmptyCodeHash is the Keccak-256 hash of the empty bytecode, the CodeHash
// value of an account with no contract code.
var EmptyCodeHash = crypto.Keccak256(nil)

// DecodeAccount decodes an RLP-encoded account leaf value.
func DecodeAccount(blob []byte) (*StateAccount, error) {
	acc := new(StateAccount)
	if err := rlp.DecodeBytes(blob, acc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return acc, nil
}

// EncodeAccount RLP-encodes an account for storage as an account-trie leaf.
func EncodeAccount(acc *StateAccount) ([]byte, error) {
	return rlp.EncodeToBytes(acc)
}
