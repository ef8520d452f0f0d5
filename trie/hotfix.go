package trie

import "github.com/ethcore/triedb/common"

// HotfixOverride is one entry of a named, position-sensitive storage patch:
// "at block Block, at transaction index TxIndex (applied before that
// transaction executes), set Account's storage Slot to Value." Two such
// tables exist in the reference chain client to correct specific historical
// mainnet/testnet transactions; spec.md §9 Open Questions requires them to
// be preserved as an explicit table rather than inferred or generalized.
//
// This module ships the mechanism only — HotfixOverrides is empty. The
// actual (block, tx, account, slot, value) tuples belong to the chain-spec
// layer (out of scope, spec.md §1) since they are network-specific facts,
// not something this engine should hardcode.
type HotfixOverride struct {
	Block    uint64
	TxIndex  int
	Account  common.Hash // hashed address, owner of the storage trie
	Slot     common.Hash // hashed storage slot
	Value    common.Hash
}

// HotfixOverrides is the process-wide table of storage patches. It is a
// plain exported slice, not a singleton behind package-level mutation
// methods: callers (the chain-spec/executor layer) populate it once at
// startup for the network they're running, matching spec.md §9's "Global
// mutable state... should be encapsulated behind an explicit handle" note
// applied to the one piece of global state this module actually needs.
var HotfixOverrides []HotfixOverride

// ApplyHotfixes invokes apply for every override scheduled at exactly
// (block, txIndex), in table order. It never guesses which overrides are
// "close enough" — only an exact (block, txIndex) match fires, per the
// Open Question's instruction not to infer intent beyond the literal
// position.
func ApplyHotfixes(overrides []HotfixOverride, block uint64, txIndex int, apply func(account, slot, value common.Hash)) {
	for _, o := range overrides {
		if o.Block == block && o.TxIndex == txIndex {
			apply(o.Account, o.Slot, o.Value)
		}
	}
}
