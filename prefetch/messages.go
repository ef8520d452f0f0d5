package prefetch

import "github.com/ethcore/triedb/common"

// accountMsg is the message set a Handle sends to the account task (spec
// §4.9 "Message types... From handle to account: PrefetchState(targets) |
// PrefetchFinished").
type accountMsg interface{ isAccountMsg() }

// storageMsg is the message set an account task sends to one of its
// storage tasks (spec §4.9 "From account to storage: PrefetchSlots(set) |
// PrefetchFinished").
type storageMsg interface{ isStorageMsg() }

// prefetchState carries a batch of account-level hints.
type prefetchState struct{ hints []Hint }

func (prefetchState) isAccountMsg() {}

// prefetchSlots carries a batch of hashed storage slots for one account.
type prefetchSlots struct{ slots []common.Hash }

func (prefetchSlots) isStorageMsg() {}

// prefetchFinished is the shared terminal message on both tiers: "no more
// work is coming, wrap up and report whatever you've warmed."
type prefetchFinished struct{}

func (prefetchFinished) isAccountMsg() {}
func (prefetchFinished) isStorageMsg() {}
