package payreq

import (
	"context"

	"github.com/payreq-foundation/payreq/types"
)

// CommitmentScheme creates and verifies binding, hiding commitments to hidden
// amounts together with proofs that a committed amount lies in a public range.
//
// Verification must be a pure function of (commitment, proof, bounds) with no
// hidden state, so implementations are swappable without touching the
// lifecycle. Verify methods return a *ProtocolError with the matching proof
// failure code when a check fails.
type CommitmentScheme interface {
	// Commit produces a commitment to value under the given blinding factor.
	Commit(value uint64, blinding []byte) (types.Commitment, error)

	// ProveRange proves value ∈ [min, max] without revealing value.
	ProveRange(value uint64, blinding []byte, min, max uint64) ([]byte, error)

	// VerifyRange checks a range proof against a commitment and bounds.
	// Fails with ErrCodeInvalidProof on a malformed, truncated, or
	// non-corresponding proof.
	VerifyRange(commitment types.Commitment, proof []byte, min, max uint64) error

	// VerifyPayment checks that a later-revealed amount is consistent with a
	// previously stored commitment. Fails with ErrCodeInvalidPaymentProof on
	// mismatch.
	VerifyPayment(commitment types.Commitment, amount uint64, proof []byte) error
}

// StealthAddressing derives one-time claim addresses and proves their
// ownership. A stealth address is unlinkable to its owner without knowledge
// of the ephemeral key used at derivation time.
type StealthAddressing interface {
	// DeriveStealth derives the one-time address for
	// (owner, requestID, ephemeralKey). Deterministic.
	DeriveStealth(owner types.Identity, requestID uint64, ephemeralKey [32]byte) types.Address

	// ProveOwnership produces a proof that the caller controls the stealth
	// address derived from (owner, requestID, ephemeralSecret). The optional
	// material is bound into the proof and carried inside it.
	ProveOwnership(owner types.Identity, requestID uint64, ephemeralSecret [32]byte, material []byte) ([]byte, error)

	// VerifyOwnership recomputes the stealth address from the claimed secret
	// and checks it against the stored one, then checks the proof itself.
	// Fails with ErrCodeUnauthorizedReceiver on address mismatch and
	// ErrCodeInvalidReceiverProof on a malformed or unbound proof.
	VerifyOwnership(stealth types.Address, owner types.Identity, requestID uint64, proof []byte, ephemeralSecret [32]byte) error
}

// RequestStore is keyed storage of persisted request entities, content-
// addressed by derived account address. Implementations must be safe for
// concurrent use.
//
// Put fails with ErrCodeRequestExists when an entity is already stored at the
// address; Get, Update and Delete fail with ErrCodeRequestNotFound when none
// is.
type RequestStore interface {
	Put(ctx context.Context, addr types.Address, data []byte) error
	Get(ctx context.Context, addr types.Address) ([]byte, error)
	Update(ctx context.Context, addr types.Address, data []byte) error
	Delete(ctx context.Context, addr types.Address) error
}

// Ledger is the external fund store. It holds balances at 32-byte addresses
// and moves value atomically: a transfer either fully applies or fully
// aborts.
//
// Withdraw releases escrowed funds and is gated on an EscrowAuthority, the
// capability only the lifecycle can mint. Transfer fails with
// ErrCodeInsufficientFunds when the source balance is too low.
type Ledger interface {
	Credit(ctx context.Context, addr types.Address, amount uint64) error
	Transfer(ctx context.Context, from, to types.Address, amount uint64) error
	Withdraw(ctx context.Context, auth EscrowAuthority, to types.Address, amount uint64) error
	Balance(ctx context.Context, addr types.Address) (uint64, error)
}
