// Package payreq implements an escrow-based payment-request protocol: a payee
// registers a request for payment under a caller-chosen id, a payer funds a
// deterministically derived escrow account, and the payee claims ("sweeps")
// the funds exactly once. A confidential variant hides the requested amount
// behind a commitment with a range proof and pays out to a one-time stealth
// address.
//
// The package holds the request lifecycle state machine and its cryptographic
// binding layer. Fund movement, entity storage, and the proof system are
// consumed through the Ledger, RequestStore, CommitmentScheme and
// StealthAddressing capabilities; reference implementations live in the
// ledger, store and mechanisms subpackages.
package payreq

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payreq-foundation/payreq/derive"
	"github.com/payreq-foundation/payreq/types"
)

// RequestLifecycle orchestrates the create → settle → sweep state machine for
// both request variants. Transitions for one (owner, request id) are
// serialized; every check runs before any side effect, so a failed transition
// never leaves partial state.
type RequestLifecycle struct {
	store   RequestStore
	ledger  Ledger
	scheme  CommitmentScheme
	stealth StealthAddressing
	clock   func() time.Time
	logger  *zap.Logger
	locks   *requestLocks

	afterCreateHooks     []AfterCreateHook
	beforeSettleHooks    []BeforeSettleHook
	afterSettleHooks     []AfterSettleHook
	onSettleFailureHooks []OnSettleFailureHook
	beforeSweepHooks     []BeforeSweepHook
	afterSweepHooks      []AfterSweepHook
	onSweepFailureHooks  []OnSweepFailureHook
}

// Option configures a RequestLifecycle.
type Option func(*RequestLifecycle)

// WithCommitmentScheme wires the commitment scheme used by the private
// variant. Private operations fail with ErrCodeSchemeNotRegistered when no
// scheme is wired.
func WithCommitmentScheme(scheme CommitmentScheme) Option {
	return func(l *RequestLifecycle) {
		l.scheme = scheme
	}
}

// WithStealthAddressing wires the stealth-address mechanism used by the
// private variant.
func WithStealthAddressing(stealth StealthAddressing) Option {
	return func(l *RequestLifecycle) {
		l.stealth = stealth
	}
}

// WithClock overrides the time source used for settlement commitments.
// Intended for tests and deterministic replay.
func WithClock(clock func() time.Time) Option {
	return func(l *RequestLifecycle) {
		l.clock = clock
	}
}

// WithLogger sets a structured logger for transition-level logs.
// The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *RequestLifecycle) {
		l.logger = logger
	}
}

// NewRequestLifecycle creates a lifecycle over the given entity store and
// fund ledger.
func NewRequestLifecycle(store RequestStore, ledger Ledger, opts ...Option) *RequestLifecycle {
	l := &RequestLifecycle{
		store:  store,
		ledger: ledger,
		clock:  time.Now,
		logger: zap.NewNop(),
		locks:  newRequestLocks(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateResult describes a created request.
type CreateResult struct {
	RequestAddress types.Address
	EscrowAddress  types.Address
	StealthAddress types.Address // private variant only
}

// SettleResult describes a settled request.
type SettleResult struct {
	Amount               uint64
	EscrowAddress        types.Address
	SettlementCommitment [32]byte // private variant only
}

// SweepResult describes a swept (and closed) request.
type SweepResult struct {
	Amount         uint64
	Receiver       types.Address
	OwnershipProof []byte // private variant only
}

// CreateRequest registers a plain payment request for (owner, requestID) with
// a plaintext amount. Fails with ErrCodeRequestExists when an entity already
// exists at the derived address.
func (l *RequestLifecycle) CreateRequest(ctx context.Context, owner types.Identity, requestID uint64, amount uint64) (*CreateResult, error) {
	addr := derive.Address(derive.NamespacePayRequest, owner, requestID)
	unlock := l.locks.lock(addr)
	defer unlock()

	entity := &types.PaymentRequest{
		Owner:     owner,
		RequestID: requestID,
		Amount:    amount,
	}
	data, err := entity.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := l.store.Put(ctx, addr, data); err != nil {
		return nil, err
	}

	l.logger.Info("payment request created",
		zap.String("owner", owner.String()),
		zap.Uint64("request_id", requestID),
		zap.Uint64("amount", amount),
	)
	l.runAfterCreateHooks(CreateHookContext{
		Ctx:       ctx,
		EventID:   uuid.New(),
		Owner:     owner,
		RequestID: requestID,
		Timestamp: l.clock(),
	})

	return &CreateResult{
		RequestAddress: addr,
		EscrowAddress:  derive.Address(derive.NamespaceEscrow, owner, requestID),
	}, nil
}

// Settle funds the escrow of a plain request: exactly the requested amount
// moves from the payer's account to the escrow, then the entity is marked
// settled. Fails with ErrCodeAlreadySettled or ErrCodeAlreadySwept on
// out-of-order transitions and ErrCodeInsufficientFunds when the payer cannot
// cover the amount.
func (l *RequestLifecycle) Settle(ctx context.Context, owner types.Identity, requestID uint64, payer types.Identity) (*SettleResult, error) {
	addr := derive.Address(derive.NamespacePayRequest, owner, requestID)
	unlock := l.locks.lock(addr)
	defer unlock()

	started := l.clock()
	hctx := SettleHookContext{
		Ctx:       ctx,
		EventID:   uuid.New(),
		Owner:     owner,
		RequestID: requestID,
		Payer:     payer,
		Timestamp: started,
	}

	result, err := l.settleLocked(ctx, addr, owner, requestID, payer, &hctx)
	if err != nil {
		l.runSettleFailureHooks(SettleFailureHookContext{
			SettleHookContext: hctx,
			Err:               err,
			Duration:          l.clock().Sub(started),
		})
		return nil, err
	}

	l.runAfterSettleHooks(SettleResultHookContext{
		SettleHookContext: hctx,
		Result:            *result,
		Duration:          l.clock().Sub(started),
	})
	return result, nil
}

func (l *RequestLifecycle) settleLocked(ctx context.Context, addr types.Address, owner types.Identity, requestID uint64, payer types.Identity, hctx *SettleHookContext) (*SettleResult, error) {
	data, err := l.store.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	var entity types.PaymentRequest
	if err := entity.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	if entity.Settled {
		return nil, NewProtocolError(ErrCodeAlreadySettled, "payment request has already been settled", nil)
	}
	if entity.Swept {
		return nil, NewProtocolError(ErrCodeAlreadySwept, "payment request has already been swept", nil)
	}

	hctx.Amount = entity.Amount
	if err := l.runBeforeSettleHooks(*hctx); err != nil {
		return nil, err
	}

	escrow := derive.Address(derive.NamespaceEscrow, owner, requestID)
	if err := l.ledger.Transfer(ctx, payer.Address(), escrow, entity.Amount); err != nil {
		return nil, err
	}

	entity.Settled = true
	updated, err := entity.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := l.store.Update(ctx, addr, updated); err != nil {
		return nil, err
	}

	l.logger.Info("payment settled",
		zap.String("owner", owner.String()),
		zap.Uint64("request_id", requestID),
		zap.String("payer", payer.String()),
		zap.Uint64("amount", entity.Amount),
	)
	return &SettleResult{
		Amount:        entity.Amount,
		EscrowAddress: escrow,
	}, nil
}

// Sweep releases the full escrow balance of a settled plain request to the
// receiver, then marks the entity swept and closes it. The receiver
// must be the stored owner; the escrow debit is authorized by an
// EscrowAuthority minted from the same seeds the escrow address was derived
// from. Fails with ErrCodeUnauthorizedReceiver, ErrCodeNotSettled or
// ErrCodeAlreadySwept.
func (l *RequestLifecycle) Sweep(ctx context.Context, owner types.Identity, requestID uint64, receiver types.Identity) (*SweepResult, error) {
	addr := derive.Address(derive.NamespacePayRequest, owner, requestID)
	unlock := l.locks.lock(addr)
	defer unlock()

	started := l.clock()
	hctx := SweepHookContext{
		Ctx:       ctx,
		EventID:   uuid.New(),
		Owner:     owner,
		RequestID: requestID,
		Receiver:  receiver,
		Timestamp: started,
	}

	result, err := l.sweepLocked(ctx, addr, owner, requestID, receiver, &hctx)
	if err != nil {
		l.runSweepFailureHooks(SweepFailureHookContext{
			SweepHookContext: hctx,
			Err:              err,
			Duration:         l.clock().Sub(started),
		})
		return nil, err
	}

	l.runAfterSweepHooks(SweepResultHookContext{
		SweepHookContext: hctx,
		Result:           *result,
		Duration:         l.clock().Sub(started),
	})
	return result, nil
}

func (l *RequestLifecycle) sweepLocked(ctx context.Context, addr types.Address, owner types.Identity, requestID uint64, receiver types.Identity, hctx *SweepHookContext) (*SweepResult, error) {
	data, err := l.store.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	var entity types.PaymentRequest
	if err := entity.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	if receiver != entity.Owner {
		return nil, NewProtocolError(ErrCodeUnauthorizedReceiver, "only the original receiver can sweep funds", nil)
	}
	if !entity.Settled {
		return nil, NewProtocolError(ErrCodeNotSettled, "payment request has not been settled yet", nil)
	}
	if entity.Swept {
		return nil, NewProtocolError(ErrCodeAlreadySwept, "payment request has already been swept", nil)
	}

	if err := l.runBeforeSweepHooks(*hctx); err != nil {
		return nil, err
	}

	auth := escrowAuthorityFor(derive.NamespaceEscrow, owner, requestID)
	amount, err := l.ledger.Balance(ctx, auth.Address())
	if err != nil {
		return nil, err
	}
	if err := l.ledger.Withdraw(ctx, auth, receiver.Address(), amount); err != nil {
		return nil, err
	}

	// Terminal state. The entity stays behind as a compact closed marker so
	// replayed transitions fail with a state-conflict code instead of
	// not-found, and the request id can never be reused.
	entity.Swept = true
	updated, err := entity.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := l.store.Update(ctx, addr, updated); err != nil {
		return nil, err
	}

	l.logger.Info("funds swept",
		zap.String("owner", owner.String()),
		zap.Uint64("request_id", requestID),
		zap.Uint64("amount", amount),
	)
	return &SweepResult{
		Amount:   amount,
		Receiver: receiver.Address(),
	}, nil
}
