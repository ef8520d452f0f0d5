// Package prefetch implements the concurrent state prefetcher (component
// C9): given a stream of multiproof hints (hashed accounts, each with an
// optional set of hashed storage slots), it warms the account trie and the
// per-account storage tries on background goroutines so that subsequent
// execution hits hot in-memory trees (spec §4.9).
//
// The architecture is three actor tiers connected by message passing:
//
//	Handle (tier 1, executor-facing) --PrefetchState/PrefetchFinished-->
//	accountTask (tier 2, one per session) --PrefetchSlots/PrefetchFinished-->
//	storageTask (tier 3, one per account with non-empty slots)
//
// Cancellation is a single shared atomic flag set by Handle.Finish and
// polled at task loop boundaries and between slot iterations; prefetching
// is strictly best-effort, so a cancelled session still reports whatever
// it managed to warm (spec §4.9, §5, §8 property 11).
package prefetch

import (
	"sync/atomic"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/log"
	"github.com/ethcore/triedb/trie"
)

var logger = log.New("prefetch")

// Hint is one warm-up instruction: a hashed account address, optionally
// paired with the hashed storage slots touched under it (spec §4.9, §6
// "a stream of hints where each hint is a mapping hashed_address ->
// set(hashed_slot)").
type Hint struct {
	Account common.Hash
	Slots   []common.Hash
}

// Config pins a prefetch session to a state root and the node-resolution
// chain (difflayer overlay, then backend) it should read tries through.
type Config struct {
	StateRoot common.Hash
	DB        *trie.Database
	Diff      *trie.Difflayer
}

// Result is the prefetcher's output (spec §6): the warmed account trie,
// one warmed storage trie per account that had non-empty slots, the
// per-account storage-root memoization built while resolving hints, and
// how many distinct slots each storage task touched.
type Result struct {
	AccountTrie    *trie.Trie
	StorageTries   map[common.Hash]*trie.Trie
	StorageRoots   map[common.Hash]common.Hash
	StorageTouched map[common.Hash]int
}

// Handle is the executor-facing front door of the prefetcher. It forwards
// hints to a single account task and owns the shared cancel flag every
// task in the session polls (spec §4.9 tier 1, §5).
type Handle struct {
	account *accountTask
	cancel  int32
}

// Open starts a prefetch session bound to cfg and returns immediately; the
// account task begins resolving its trie in the background.
func Open(cfg Config) *Handle {
	h := &Handle{}
	h.account = newAccountTask(cfg, &h.cancel)
	go h.account.run()
	return h
}

// Prefetch submits a batch of hints for background warming. It never
// blocks on trie I/O: the message is appended to the account task's
// unbounded queue and this call returns immediately. Calls after Finish
// (or after cancellation is observed) are silently dropped.
func (h *Handle) Prefetch(hints []Hint) {
	if atomic.LoadInt32(&h.cancel) != 0 {
		return
	}
	h.account.send(prefetchState{hints: hints})
}

// Finish signals that no more hints are coming — the executor's
// "FinishedStateUpdates" (spec §4.9) — sets the shared cancel flag so any
// in-flight hint batch winds down at its next poll point, and blocks until
// the account task and every storage task it spawned have reported a
// result. Finish always returns a usable Result, even when cancellation
// cut warming short (spec §8 property 11): best-effort prefetching never
// surfaces a Cancelled error to the caller (spec §7).
func (h *Handle) Finish() *Result {
	atomic.StoreInt32(&h.cancel, 1)
	h.account.send(prefetchFinished{})
	return <-h.account.resultCh
}
