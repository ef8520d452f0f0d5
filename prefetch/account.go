package prefetch

import (
	"sync/atomic"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/trie"
)

// accountTask is tier 2 of the prefetcher (spec §4.9): it owns one account
// trie resolved at a given state root, memoizes each hinted account's
// storage root, lazily spins up a storageTask per account with non-empty
// slots, and assembles the session's Result once it observes
// PrefetchFinished.
//
// State machine (spec §4.9):
//
//	Idle --PrefetchState--> Working --PrefetchState--> Working
//	Working --PrefetchFinished--> Terminating --(all storage joined)--> Done
//	Any state --cancel observed--> Terminating
type accountTask struct {
	trie   *trie.Trie
	cfg    Config
	cancel *int32

	queue    *msgQueue[accountMsg]
	resultCh chan *Result

	storageOf      map[common.Hash]*storageTask
	storageRoots   map[common.Hash]common.Hash
	touchedAccount map[common.Hash]struct{}
}

func newAccountTask(cfg Config, cancel *int32) *accountTask {
	return &accountTask{
		cfg:            cfg,
		cancel:         cancel,
		queue:          newMsgQueue[accountMsg](),
		resultCh:       make(chan *Result, 1),
		storageOf:      make(map[common.Hash]*storageTask),
		storageRoots:   make(map[common.Hash]common.Hash),
		touchedAccount: make(map[common.Hash]struct{}),
	}
}

func (t *accountTask) send(msg accountMsg) { t.queue.push(msg) }

// run is the account task's loop. A trie open failure is treated as the
// best-effort prefetcher treats any failure: logged and the session
// reports an empty (but valid) result rather than propagating an error to
// the executor (spec §4.9 "Failure semantics", §7).
func (t *accountTask) run() {
	tr, err := trie.New(trie.ID{StateRoot: t.cfg.StateRoot, Root: t.cfg.StateRoot}, t.cfg.DB, t.cfg.Diff)
	if err != nil {
		logger.Warn("prefetch: failed opening account trie", "root", t.cfg.StateRoot, "err", err)
		t.resultCh <- &Result{
			StorageTries:   map[common.Hash]*trie.Trie{},
			StorageRoots:   map[common.Hash]common.Hash{},
			StorageTouched: map[common.Hash]int{},
		}
		return
	}
	t.trie = tr

	for {
		switch m := t.queue.pop().(type) {
		case prefetchState:
			t.handleHints(m.hints)
		case prefetchFinished:
			t.finish()
			return
		}
	}
}

// handleHints processes one batch of hints, polling the shared cancel
// flag between hints so a large batch aborts promptly once
// FinishedStateUpdates has been observed (spec §4.9, §5).
func (t *accountTask) handleHints(hints []Hint) {
	for _, hint := range hints {
		if atomic.LoadInt32(t.cancel) != 0 {
			return
		}
		if _, ok := t.touchedAccount[hint.Account]; !ok {
			t.touchAccount(hint.Account)
			t.touchedAccount[hint.Account] = struct{}{}
		}
		if len(hint.Slots) == 0 {
			continue
		}
		root, ok := t.resolveStorageRoot(hint.Account)
		if !ok {
			continue
		}
		st := t.storageOf[hint.Account]
		if st == nil {
			st = newStorageTask(t.cfg, hint.Account, root, t.cancel)
			t.storageOf[hint.Account] = st
			go st.run()
		}
		st.send(prefetchSlots{slots: hint.Slots})
	}
}

// touchAccount resolves the path from the account trie root down to addr's
// leaf, warming it in memory. A failure is logged and skipped (spec §4.9
// "Failure semantics... missing warmth never affects correctness").
func (t *accountTask) touchAccount(addr common.Hash) {
	if _, _, err := t.trie.Get(addr[:]); err != nil {
		logger.Warn("prefetch: failed touching account", "account", addr, "err", err)
	}
}

// resolveStorageRoot returns addr's storage root, resolving and decoding
// the account leaf on first sight and memoizing the result thereafter
// (spec §4.9 "Resolve the account's storage root..., memoize").
func (t *accountTask) resolveStorageRoot(addr common.Hash) (common.Hash, bool) {
	if root, ok := t.storageRoots[addr]; ok {
		return root, true
	}
	blob, found, err := t.trie.Get(addr[:])
	if err != nil {
		logger.Warn("prefetch: failed resolving storage root", "account", addr, "err", err)
		return common.Hash{}, false
	}
	if !found {
		return common.Hash{}, false
	}
	acc, err := trie.DecodeAccount(blob)
	if err != nil {
		logger.Warn("prefetch: failed decoding account", "account", addr, "err", err)
		return common.Hash{}, false
	}
	t.storageRoots[addr] = acc.Root
	return acc.Root, true
}

// finish forwards PrefetchFinished to every storage task it spawned,
// joins them, and assembles the session Result (spec §4.9 "After the
// terminate signal, it sends a final PrefetchFinished to each storage
// task, joins them, and emits a result").
func (t *accountTask) finish() {
	for _, st := range t.storageOf {
		st.send(prefetchFinished{})
	}
	storageTries := make(map[common.Hash]*trie.Trie, len(t.storageOf))
	touched := make(map[common.Hash]int, len(t.storageOf))
	for addr, st := range t.storageOf {
		res := <-st.resultCh
		storageTries[addr] = res.trie
		touched[addr] = res.touched
	}
	t.resultCh <- &Result{
		AccountTrie:    t.trie,
		StorageTries:   storageTries,
		StorageRoots:   t.storageRoots,
		StorageTouched: touched,
	}
}
