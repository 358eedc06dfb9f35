// Package types defines the entity model of the payment-request protocol:
// identities, derived addresses, commitments, and the two persisted request
// entities together with their fixed binary account layout.
package types

import (
	"encoding/hex"
	"fmt"
)

// Identity is the 32-byte public identity of a protocol participant.
// An identity's ledger account address is the identity bytes themselves.
type Identity [32]byte

// Address is a 32-byte account address. Escrow and entity addresses are
// deterministically derived; wallet addresses are identity bytes.
type Address [32]byte

// Commitment is an opaque 32-byte binding, hiding commitment to an amount.
type Commitment [32]byte

// Address returns the ledger account address owned by the identity.
func (id Identity) Address() Address {
	return Address(id)
}

func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (c Commitment) String() string {
	return "0x" + hex.EncodeToString(c[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// IdentityFromHex parses a 32-byte identity from a hex string
// (with or without a "0x" prefix).
func IdentityFromHex(s string) (Identity, error) {
	var id Identity
	b, err := bytesFromHex(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

// AddressFromHex parses a 32-byte address from a hex string.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := bytesFromHex(s)
	if err != nil {
		return a, err
	}
	copy(a[:], b)
	return a, nil
}

// CommitmentFromHex parses a 32-byte commitment from a hex string.
func CommitmentFromHex(s string) (Commitment, error) {
	var c Commitment
	b, err := bytesFromHex(s)
	if err != nil {
		return c, err
	}
	copy(c[:], b)
	return c, nil
}

func bytesFromHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	return b, nil
}
