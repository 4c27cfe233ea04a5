package store

import "sync"

// convLocks serializes writes per conversation so sequence allocation and
// the paired meta update commit together without interleaving.
var convLocks sync.Map // convID -> *sync.Mutex

// LockConv acquires the write lock for a conversation and returns the
// unlock function.
func LockConv(convID string) func() {
	v, _ := convLocks.LoadOrStore(convID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
