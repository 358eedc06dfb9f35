package types

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// Proof blob size caps enforced at the boundary. Oversized proofs are
// rejected, never truncated. MaxRangeProofLen is sized for the reference
// bit-decomposition proof: two sides of up to 64 bit commitments plus OR
// proofs at 160 bytes per bit, with header room to spare.
const (
	MaxRangeProofLen     = 24576
	MaxOwnershipProofLen = 256
)

// PaymentRequest is the plain-variant entity persisted at
// derive("pay_request", owner, request id).
//
// Field order is the on-ledger account layout: borsh encoding, fixed-width
// little-endian integers, fixed 32-byte arrays, length-prefixed byte vectors.
type PaymentRequest struct {
	Owner     Identity
	RequestID uint64
	Amount    uint64
	Settled   bool
	Swept     bool
}

// PrivatePaymentRequest is the confidential-variant entity persisted at
// derive("zk_pay_request", owner, request id). The requested amount is hidden
// behind AmountCommitment; MinAmount/MaxAmount bound it publicly.
type PrivatePaymentRequest struct {
	Owner                Identity
	RequestID            uint64
	AmountCommitment     Commitment
	RangeProof           []byte
	StealthAddress       Address
	MinAmount            uint64
	MaxAmount            uint64
	SettledAmount        uint64
	SettlementCommitment [32]byte
	OwnershipProof       []byte
	Settled              bool
	Swept                bool
}

// MarshalBinary encodes the entity in its persisted account layout.
func (r *PaymentRequest) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode payment request: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an entity from its persisted account layout.
func (r *PaymentRequest) UnmarshalBinary(data []byte) error {
	if err := bin.NewBorshDecoder(data).Decode(r); err != nil {
		return fmt.Errorf("decode payment request: %w", err)
	}
	return nil
}

// MarshalBinary encodes the entity in its persisted account layout.
func (r *PrivatePaymentRequest) MarshalBinary() ([]byte, error) {
	if err := r.validateBlobs(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encode private payment request: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an entity from its persisted account layout.
func (r *PrivatePaymentRequest) UnmarshalBinary(data []byte) error {
	if err := bin.NewBorshDecoder(data).Decode(r); err != nil {
		return fmt.Errorf("decode private payment request: %w", err)
	}
	return r.validateBlobs()
}

func (r *PrivatePaymentRequest) validateBlobs() error {
	if len(r.RangeProof) > MaxRangeProofLen {
		return fmt.Errorf("range proof exceeds %d bytes: %d", MaxRangeProofLen, len(r.RangeProof))
	}
	if len(r.OwnershipProof) > MaxOwnershipProofLen {
		return fmt.Errorf("ownership proof exceeds %d bytes: %d", MaxOwnershipProofLen, len(r.OwnershipProof))
	}
	return nil
}
