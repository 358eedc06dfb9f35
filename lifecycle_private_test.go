package payreq_test

import (
	"context"
	"testing"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/derive"
	"github.com/payreq-foundation/payreq/ledger"
	"github.com/payreq-foundation/payreq/store"
	"github.com/payreq-foundation/payreq/types"
)

func privateParams(owner types.Identity, requestID uint64, min, max uint64) payreq.CreatePrivateParams {
	return payreq.CreatePrivateParams{
		Owner:            owner,
		RequestID:        requestID,
		AmountCommitment: types.Commitment{0xC0},
		RangeProof:       []byte("mock-range-proof"),
		MinAmount:        min,
		MaxAmount:        max,
		EphemeralPubKey:  [32]byte{0xEE},
	}
}

func TestPrivateLifecycleHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := identity(0x10)
	payer := identity(0x20)
	fund(t, f, payer, 1000)

	created, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 50, 150))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.EscrowAddress != derive.Address(derive.NamespaceZkEscrow, owner, 1) {
		t.Error("escrow address does not match derivation")
	}
	if created.StealthAddress.IsZero() {
		t.Error("expected a stealth address")
	}

	settled, err := f.lifecycle.SettlePrivate(ctx, owner, 1, payer, 120, []byte("opening"))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Amount != 120 {
		t.Errorf("expected settled amount 120, got %d", settled.Amount)
	}
	if settled.SettlementCommitment == (types.Commitment{}) {
		t.Error("expected a settlement commitment")
	}
	if got := balance(t, f, created.EscrowAddress); got != 120 {
		t.Errorf("expected escrow balance 120, got %d", got)
	}

	swept, err := f.lifecycle.SweepPrivate(ctx, owner, 1, owner, []byte("ownership"), [32]byte{0xEE})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept.Amount != 120 {
		t.Errorf("expected swept amount 120, got %d", swept.Amount)
	}
	if got := balance(t, f, owner.Address()); got != 120 {
		t.Errorf("expected owner balance 120, got %d", got)
	}
}

func TestCreatePrivateRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.CreatePrivateRequest(context.Background(), privateParams(identity(1), 1, 200, 100))
	expectCode(t, err, payreq.ErrCodeInvalidRange)
}

func TestCreatePrivateRejectsOversizedProof(t *testing.T) {
	f := newFixture(t)
	p := privateParams(identity(1), 1, 0, 100)
	p.RangeProof = make([]byte, types.MaxRangeProofLen+1)
	_, err := f.lifecycle.CreatePrivateRequest(context.Background(), p)
	expectCode(t, err, payreq.ErrCodeInvalidProof)
}

func TestCreatePrivateRejectsBadRangeProof(t *testing.T) {
	scheme := &mockScheme{
		verifyRange: func(c types.Commitment, proof []byte, min, max uint64) error {
			return payreq.NewProtocolError(payreq.ErrCodeInvalidProof, "range proof verification failed", nil)
		},
	}
	f := newFixture(t, payreq.WithCommitmentScheme(scheme))
	_, err := f.lifecycle.CreatePrivateRequest(context.Background(), privateParams(identity(1), 1, 0, 100))
	expectCode(t, err, payreq.ErrCodeInvalidProof)
}

func TestSettlePrivateEnforcesRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := identity(1)
	payer := identity(2)
	fund(t, f, payer, 10000)

	if _, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 50, 150)); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, amount := range []uint64{49, 151, 0} {
		_, err := f.lifecycle.SettlePrivate(ctx, owner, 1, payer, amount, []byte("opening"))
		expectCode(t, err, payreq.ErrCodeAmountOutOfRange)
	}

	// Boundary values are inside the range.
	if _, err := f.lifecycle.SettlePrivate(ctx, owner, 1, payer, 50, []byte("opening")); err != nil {
		t.Fatalf("settle at min bound: %v", err)
	}
}

func TestSettlePrivateRejectsBadPaymentProof(t *testing.T) {
	ctx := context.Background()
	scheme := &mockScheme{
		verifyPayment: func(c types.Commitment, amount uint64, proof []byte) error {
			return payreq.NewProtocolError(payreq.ErrCodeInvalidPaymentProof, "payment proof does not open the commitment", nil)
		},
	}
	f := newFixture(t, payreq.WithCommitmentScheme(scheme))
	owner := identity(1)
	payer := identity(2)
	fund(t, f, payer, 500)

	if _, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 0, 500)); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := f.lifecycle.SettlePrivate(ctx, owner, 1, payer, 100, []byte("bad"))
	expectCode(t, err, payreq.ErrCodeInvalidPaymentProof)

	if got := balance(t, f, payer.Address()); got != 500 {
		t.Errorf("expected payer balance untouched at 500, got %d", got)
	}
}

func TestSweepPrivateVerifiesOwnershipBeforeState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := identity(1)

	if _, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 0, 100)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Wrong ephemeral secret fails ownership even though the request is
	// also unsettled; the ownership check comes first.
	_, err := f.lifecycle.SweepPrivate(ctx, owner, 1, owner, []byte("ownership"), [32]byte{0xFF})
	expectCode(t, err, payreq.ErrCodeUnauthorizedReceiver)
}

func TestSweepPrivateRejectsWrongReceiver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := identity(1)
	payer := identity(2)
	intruder := identity(3)
	fund(t, f, payer, 500)

	if _, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 0, 500)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.lifecycle.SettlePrivate(ctx, owner, 1, payer, 100, []byte("opening")); err != nil {
		t.Fatalf("settle: %v", err)
	}
	_, err := f.lifecycle.SweepPrivate(ctx, owner, 1, intruder, []byte("ownership"), [32]byte{0xEE})
	expectCode(t, err, payreq.ErrCodeUnauthorizedReceiver)
}

func TestSweepPrivateTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := identity(1)
	payer := identity(2)
	fund(t, f, payer, 500)

	if _, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 0, 500)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.lifecycle.SettlePrivate(ctx, owner, 1, payer, 100, []byte("opening")); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if _, err := f.lifecycle.SweepPrivate(ctx, owner, 1, owner, []byte("ownership"), [32]byte{0xEE}); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	_, err := f.lifecycle.SweepPrivate(ctx, owner, 1, owner, []byte("ownership"), [32]byte{0xEE})
	expectCode(t, err, payreq.ErrCodeAlreadySwept)
}

func TestPrivateOpsWithoutCapabilitiesFail(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	l := ledger.NewInMemoryLedger()
	lifecycle := payreq.NewRequestLifecycle(s, l)

	_, err := lifecycle.CreatePrivateRequest(ctx, privateParams(identity(1), 1, 0, 100))
	expectCode(t, err, payreq.ErrCodeSchemeNotRegistered)

	_, err = lifecycle.SettlePrivate(ctx, identity(1), 1, identity(2), 50, nil)
	expectCode(t, err, payreq.ErrCodeSchemeNotRegistered)

	_, err = lifecycle.SweepPrivate(ctx, identity(1), 1, identity(1), nil, [32]byte{})
	expectCode(t, err, payreq.ErrCodeSchemeNotRegistered)

	// Plain requests still work without the private capabilities.
	if _, err := lifecycle.CreateRequest(ctx, identity(1), 1, 100); err != nil {
		t.Fatalf("plain create: %v", err)
	}
}

func TestPlainAndPrivateNamespacesDisjoint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := identity(1)

	// Same owner and id in both variants must not collide.
	if _, err := f.lifecycle.CreateRequest(ctx, owner, 1, 100); err != nil {
		t.Fatalf("plain create: %v", err)
	}
	if _, err := f.lifecycle.CreatePrivateRequest(ctx, privateParams(owner, 1, 0, 100)); err != nil {
		t.Fatalf("private create: %v", err)
	}
}
