package payreq

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/payreq-foundation/payreq/derive"
	"github.com/payreq-foundation/payreq/types"
)

// CreatePrivateParams carries the inputs of CreatePrivateRequest.
type CreatePrivateParams struct {
	Owner            types.Identity
	RequestID        uint64
	AmountCommitment types.Commitment
	RangeProof       []byte
	MinAmount        uint64
	MaxAmount        uint64
	EphemeralPubKey  [32]byte
}

// CreatePrivateRequest registers a confidential payment request. The
// requested amount stays hidden behind AmountCommitment; the supplied range
// proof is verified against the commitment and the public [min, max] bounds
// before anything is persisted. The payee's claim address is a one-time
// stealth address derived from the ephemeral public key.
//
// Fails with ErrCodeInvalidRange when min ≥ max, ErrCodeInvalidProof on a
// malformed or oversized proof, and ErrCodeRequestExists when the entity
// already exists.
func (l *RequestLifecycle) CreatePrivateRequest(ctx context.Context, p CreatePrivateParams) (*CreateResult, error) {
	if err := l.requirePrivateCapabilities(); err != nil {
		return nil, err
	}

	addr := derive.Address(derive.NamespaceZkPayRequest, p.Owner, p.RequestID)
	unlock := l.locks.lock(addr)
	defer unlock()

	if len(p.RangeProof) > types.MaxRangeProofLen {
		return nil, NewProtocolError(ErrCodeInvalidProof, "range proof exceeds declared maximum", map[string]interface{}{
			"max_bytes": types.MaxRangeProofLen,
			"got_bytes": len(p.RangeProof),
		})
	}
	if p.MinAmount >= p.MaxAmount {
		return nil, NewProtocolError(ErrCodeInvalidRange, "invalid amount range specified", nil)
	}
	if err := l.scheme.VerifyRange(p.AmountCommitment, p.RangeProof, p.MinAmount, p.MaxAmount); err != nil {
		return nil, err
	}

	stealthAddr := l.stealth.DeriveStealth(p.Owner, p.RequestID, p.EphemeralPubKey)

	entity := &types.PrivatePaymentRequest{
		Owner:            p.Owner,
		RequestID:        p.RequestID,
		AmountCommitment: p.AmountCommitment,
		RangeProof:       p.RangeProof,
		StealthAddress:   stealthAddr,
		MinAmount:        p.MinAmount,
		MaxAmount:        p.MaxAmount,
	}
	data, err := entity.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := l.store.Put(ctx, addr, data); err != nil {
		return nil, err
	}

	l.logger.Info("private payment request created",
		zap.String("owner", p.Owner.String()),
		zap.Uint64("request_id", p.RequestID),
		zap.String("stealth_address", stealthAddr.String()),
	)
	l.runAfterCreateHooks(CreateHookContext{
		Ctx:       ctx,
		EventID:   uuid.New(),
		Owner:     p.Owner,
		RequestID: p.RequestID,
		Private:   true,
		Timestamp: l.clock(),
	})

	return &CreateResult{
		RequestAddress: addr,
		EscrowAddress:  derive.Address(derive.NamespaceZkEscrow, p.Owner, p.RequestID),
		StealthAddress: stealthAddr,
	}, nil
}

// SettlePrivate funds the escrow of a confidential request. The revealed
// amount must lie within the public bounds and be consistent with the stored
// commitment under the supplied payment proof; only then does the transfer
// run. The settlement commitment binds payer, amount and time.
//
// Fails with ErrCodeAlreadySettled, ErrCodeAlreadySwept,
// ErrCodeAmountOutOfRange or ErrCodeInvalidPaymentProof.
func (l *RequestLifecycle) SettlePrivate(ctx context.Context, owner types.Identity, requestID uint64, payer types.Identity, amount uint64, paymentProof []byte) (*SettleResult, error) {
	if err := l.requirePrivateCapabilities(); err != nil {
		return nil, err
	}

	addr := derive.Address(derive.NamespaceZkPayRequest, owner, requestID)
	unlock := l.locks.lock(addr)
	defer unlock()

	started := l.clock()
	hctx := SettleHookContext{
		Ctx:       ctx,
		EventID:   uuid.New(),
		Owner:     owner,
		RequestID: requestID,
		Payer:     payer,
		Amount:    amount,
		Private:   true,
		Timestamp: started,
	}

	result, err := l.settlePrivateLocked(ctx, addr, owner, requestID, payer, amount, paymentProof, &hctx)
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

func (l *RequestLifecycle) settlePrivateLocked(ctx context.Context, addr types.Address, owner types.Identity, requestID uint64, payer types.Identity, amount uint64, paymentProof []byte, hctx *SettleHookContext) (*SettleResult, error) {
	data, err := l.store.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	var entity types.PrivatePaymentRequest
	if err := entity.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	if entity.Settled {
		return nil, NewProtocolError(ErrCodeAlreadySettled, "payment request has already been settled", nil)
	}
	if entity.Swept {
		return nil, NewProtocolError(ErrCodeAlreadySwept, "payment request has already been swept", nil)
	}
	if amount < entity.MinAmount || amount > entity.MaxAmount {
		return nil, NewProtocolError(ErrCodeAmountOutOfRange, "amount is outside the committed range", map[string]interface{}{
			"min_amount": entity.MinAmount,
			"max_amount": entity.MaxAmount,
		})
	}
	if err := l.scheme.VerifyPayment(entity.AmountCommitment, amount, paymentProof); err != nil {
		return nil, err
	}

	if err := l.runBeforeSettleHooks(*hctx); err != nil {
		return nil, err
	}

	escrow := derive.Address(derive.NamespaceZkEscrow, owner, requestID)
	if err := l.ledger.Transfer(ctx, payer.Address(), escrow, amount); err != nil {
		return nil, err
	}

	entity.SettlementCommitment = settlementCommitment(payer, amount, l.clock().Unix())
	entity.SettledAmount = amount
	entity.Settled = true
	updated, err := entity.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := l.store.Update(ctx, addr, updated); err != nil {
		return nil, err
	}

	l.logger.Info("private payment settled",
		zap.String("owner", owner.String()),
		zap.Uint64("request_id", requestID),
		zap.String("payer", payer.String()),
	)
	return &SettleResult{
		Amount:               amount,
		EscrowAddress:        escrow,
		SettlementCommitment: entity.SettlementCommitment,
	}, nil
}

// SweepPrivate releases the escrowed funds of a settled confidential request.
// The caller must prove ownership of the stealth address with the ephemeral
// secret before identity is accepted; the proof is recorded on the closed
// entity and returned in the result.
//
// Fails with ErrCodeUnauthorizedReceiver, ErrCodeInvalidReceiverProof,
// ErrCodeNotSettled or ErrCodeAlreadySwept.
func (l *RequestLifecycle) SweepPrivate(ctx context.Context, owner types.Identity, requestID uint64, receiver types.Identity, ownershipProof []byte, ephemeralSecret [32]byte) (*SweepResult, error) {
	if err := l.requirePrivateCapabilities(); err != nil {
		return nil, err
	}

	addr := derive.Address(derive.NamespaceZkPayRequest, owner, requestID)
	unlock := l.locks.lock(addr)
	defer unlock()

	started := l.clock()
	hctx := SweepHookContext{
		Ctx:       ctx,
		EventID:   uuid.New(),
		Owner:     owner,
		RequestID: requestID,
		Receiver:  receiver,
		Private:   true,
		Timestamp: started,
	}

	result, err := l.sweepPrivateLocked(ctx, addr, owner, requestID, receiver, ownershipProof, ephemeralSecret, &hctx)
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

func (l *RequestLifecycle) sweepPrivateLocked(ctx context.Context, addr types.Address, owner types.Identity, requestID uint64, receiver types.Identity, ownershipProof []byte, ephemeralSecret [32]byte, hctx *SweepHookContext) (*SweepResult, error) {
	if len(ownershipProof) > types.MaxOwnershipProofLen {
		return nil, NewProtocolError(ErrCodeInvalidReceiverProof, "ownership proof exceeds declared maximum", map[string]interface{}{
			"max_bytes": types.MaxOwnershipProofLen,
			"got_bytes": len(ownershipProof),
		})
	}

	data, err := l.store.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	var entity types.PrivatePaymentRequest
	if err := entity.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	// Stealth ownership is checked before plain identity, matching the
	// transition's authorization order.
	if err := l.stealth.VerifyOwnership(entity.StealthAddress, entity.Owner, entity.RequestID, ownershipProof, ephemeralSecret); err != nil {
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

	auth := escrowAuthorityFor(derive.NamespaceZkEscrow, owner, requestID)
	amount, err := l.ledger.Balance(ctx, auth.Address())
	if err != nil {
		return nil, err
	}
	if err := l.ledger.Withdraw(ctx, auth, receiver.Address(), amount); err != nil {
		return nil, err
	}

	// Terminal state: record the ownership proof for audit and reclaim the
	// range-proof blob, leaving a compact closed marker behind so replayed
	// transitions fail with a state-conflict code and the id is never reused.
	entity.OwnershipProof = ownershipProof
	entity.RangeProof = nil
	entity.Swept = true
	updated, err := entity.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := l.store.Update(ctx, addr, updated); err != nil {
		return nil, err
	}

	l.logger.Info("private funds swept",
		zap.String("owner", owner.String()),
		zap.Uint64("request_id", requestID),
		zap.Uint64("amount", amount),
	)
	return &SweepResult{
		Amount:         amount,
		Receiver:       receiver.Address(),
		OwnershipProof: ownershipProof,
	}, nil
}

func (l *RequestLifecycle) requirePrivateCapabilities() error {
	if l.scheme == nil || l.stealth == nil {
		return NewProtocolError(ErrCodeSchemeNotRegistered, "no commitment scheme or stealth addressing wired for private requests", nil)
	}
	return nil
}

// settlementCommitment binds payer identity, the revealed amount, and the
// settlement time into a single hash stored on the entity.
func settlementCommitment(payer types.Identity, amount uint64, unixTime int64) [32]byte {
	buf := make([]byte, 0, 32+8+8)
	buf = append(buf, payer[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, amount)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(unixTime))
	return sha256.Sum256(buf)
}
