package prefetch

import (
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethcore/triedb/common"
	"github.com/ethcore/triedb/trie"
)

// storageResult is what a storageTask reports back to its owning account
// task: the warmed trie and how many distinct slots it touched (spec §4.9
// "StorageResult(addr, trie, touched_count)").
type storageResult struct {
	trie    *trie.Trie
	touched int
}

// storageTask is tier 3 of the prefetcher (spec §4.9): one per account
// that had at least one non-empty slot hint. It owns a single storage
// trie and a per-task "seen" set so duplicate slot requests across
// multiple hint batches are ignored (spec §4.9 "duplicate slot requests
// are ignored via a per-task visited set").
type storageTask struct {
	cfg    Config
	addr   common.Hash
	root   common.Hash
	cancel *int32

	trie *trie.Trie
	seen mapset.Set[common.Hash]

	queue    *msgQueue[storageMsg]
	resultCh chan storageResult
}

func newStorageTask(cfg Config, addr, root common.Hash, cancel *int32) *storageTask {
	return &storageTask{
		cfg:      cfg,
		addr:     addr,
		root:     root,
		cancel:   cancel,
		seen:     mapset.NewThreadUnsafeSet[common.Hash](),
		queue:    newMsgQueue[storageMsg](),
		resultCh: make(chan storageResult, 1),
	}
}

func (t *storageTask) send(msg storageMsg) { t.queue.push(msg) }

// run is the storage task's loop: open the storage trie owned by addr at
// root, then process PrefetchSlots batches until PrefetchFinished.
func (t *storageTask) run() {
	tr, err := trie.New(trie.ID{StateRoot: t.cfg.StateRoot, Owner: t.addr, Root: t.root}, t.cfg.DB, t.cfg.Diff)
	if err != nil {
		logger.Warn("prefetch: failed opening storage trie", "account", t.addr, "root", t.root, "err", err)
		t.resultCh <- storageResult{}
		return
	}
	t.trie = tr

	for {
		switch m := t.queue.pop().(type) {
		case prefetchSlots:
			t.handleSlots(m.slots)
		case prefetchFinished:
			t.resultCh <- storageResult{trie: t.trie, touched: t.seen.Cardinality()}
			return
		}
	}
}

// handleSlots touches every unseen slot in order, polling the shared
// cancel flag between each one so a large batch aborts promptly once the
// session has been told to wind down (spec §4.9 "Cancellation semantics:
// the atomic cancel is polled... between slot iterations").
func (t *storageTask) handleSlots(slots []common.Hash) {
	for _, slot := range slots {
		if atomic.LoadInt32(t.cancel) != 0 {
			return
		}
		if t.seen.Contains(slot) {
			continue
		}
		if _, _, err := t.trie.Get(slot[:]); err != nil {
			logger.Warn("prefetch: failed touching storage slot", "account", t.addr, "slot", slot, "err", err)
		}
		t.seen.Add(slot)
	}
}
