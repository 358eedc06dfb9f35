// Package ledger provides an in-memory implementation of the payreq.Ledger
// fund store.
//
// This implementation is suitable for tests and single-process embedding. In
// production the ledger is the host runtime that executes transitions
// atomically; any implementation must preserve the same all-or-nothing
// transfer semantics.
package ledger

import (
	"context"
	"sync"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

// InMemoryLedger holds balances keyed by 32-byte account address.
// Thread-safe; every operation fully applies or fully aborts.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[types.Address]uint64
}

// NewInMemoryLedger creates an empty ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: make(map[types.Address]uint64)}
}

// Credit mints amount onto addr. Used to fund payer accounts.
func (l *InMemoryLedger) Credit(_ context.Context, addr types.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
	return nil
}

// Transfer moves amount from one account to another. Fails with
// ErrCodeInsufficientFunds without touching either balance when the source
// cannot cover the amount.
func (l *InMemoryLedger) Transfer(_ context.Context, from, to types.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

// Withdraw releases escrowed funds to a destination account. The authority
// must be a live capability for the escrow address; only the request
// lifecycle can mint one.
func (l *InMemoryLedger) Withdraw(_ context.Context, auth payreq.EscrowAuthority, to types.Address, amount uint64) error {
	if auth.IsZero() {
		return payreq.NewProtocolError(payreq.ErrCodeUnauthorizedReceiver, "escrow withdrawal requires a valid authority", nil)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(auth.Address(), to, amount)
}

// Balance returns the current balance of addr. Unknown accounts hold zero.
func (l *InMemoryLedger) Balance(_ context.Context, addr types.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr], nil
}

func (l *InMemoryLedger) transferLocked(from, to types.Address, amount uint64) error {
	if l.balances[from] < amount {
		return payreq.NewProtocolError(payreq.ErrCodeInsufficientFunds, "source balance cannot cover the transfer", map[string]interface{}{
			"balance": l.balances[from],
			"amount":  amount,
		})
	}
	l.balances[from] -= amount
	if l.balances[from] == 0 {
		delete(l.balances, from)
	}
	l.balances[to] += amount
	return nil
}

// Ensure InMemoryLedger implements payreq.Ledger
var _ payreq.Ledger = (*InMemoryLedger)(nil)
