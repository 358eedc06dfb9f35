package payreq

import (
	"sync"

	"github.com/payreq-foundation/payreq/types"
)

// requestLocks serializes transitions per derived entity address, standing in
// for the host ledger's guarantee that only one transition for a given
// account commits at a time. Distinct addresses never contend.
type requestLocks struct {
	mu      sync.Mutex
	entries map[types.Address]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newRequestLocks() *requestLocks {
	return &requestLocks{entries: make(map[types.Address]*lockEntry)}
}

// lock acquires the per-address lock and returns its release function.
func (r *requestLocks) lock(addr types.Address) func() {
	r.mu.Lock()
	entry, ok := r.entries[addr]
	if !ok {
		entry = &lockEntry{}
		r.entries[addr] = entry
	}
	entry.refs++
	r.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		r.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(r.entries, addr)
		}
		r.mu.Unlock()
	}
}
