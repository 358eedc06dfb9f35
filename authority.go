package payreq

import (
	"github.com/payreq-foundation/payreq/derive"
	"github.com/payreq-foundation/payreq/types"
)

// EscrowAuthority authorizes the release of funds held at a derived escrow
// address. The protocol never holds a persisted private key for an escrow:
// authority flows from the address-derivation preimage, which only the
// lifecycle can reconstruct. The zero value carries no authority.
//
// Callers cannot construct a valid EscrowAuthority; it is minted internally
// during sweep and handed to the ledger for the single debit it authorizes.
type EscrowAuthority struct {
	address  types.Address
	preimage []byte
}

// Address returns the escrow address this authority controls.
func (a EscrowAuthority) Address() types.Address {
	return a.address
}

// IsZero reports whether the authority is the zero value.
func (a EscrowAuthority) IsZero() bool {
	return a.address.IsZero() || len(a.preimage) == 0
}

// escrowAuthorityFor mints the authority for the escrow account derived from
// (namespace, owner, requestID). Unexported: the capability never crosses the
// package boundary except by value into Ledger.Withdraw.
func escrowAuthorityFor(namespace string, owner types.Identity, requestID uint64) EscrowAuthority {
	return EscrowAuthority{
		address:  derive.Address(namespace, owner, requestID),
		preimage: derive.Preimage(namespace, owner, requestID),
	}
}
