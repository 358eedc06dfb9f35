// Package derive implements deterministic account-address derivation.
//
// An address is a pure function of (namespace, owner, request id). Distinct
// namespaces yield disjoint address spaces for identical (owner, id) pairs.
// The namespace strings are part of the protocol: changing them changes every
// derived address and breaks compatibility with previously created entities.
package derive

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/payreq-foundation/payreq/types"
)

// Stable derivation namespaces.
const (
	NamespacePayRequest   = "pay_request"
	NamespaceEscrow       = "escrow"
	NamespaceZkPayRequest = "zk_pay_request"
	NamespaceZkEscrow     = "zk_escrow"
)

// Address derives the account address for (namespace, owner, requestID) by
// hashing namespace ∥ owner ∥ le64(requestID) with the host's canonical
// address-derivation hash. Pure and total: same inputs, same address.
func Address(namespace string, owner types.Identity, requestID uint64) types.Address {
	var addr types.Address
	copy(addr[:], crypto.Keccak256(Preimage(namespace, owner, requestID)))
	return addr
}

// Preimage returns the derivation seed bytes for (namespace, owner,
// requestID). The preimage doubles as the proof that its holder controls the
// derived account; it never leaves the protocol.
func Preimage(namespace string, owner types.Identity, requestID uint64) []byte {
	seed := make([]byte, 0, len(namespace)+32+8)
	seed = append(seed, namespace...)
	seed = append(seed, owner[:]...)
	seed = binary.LittleEndian.AppendUint64(seed, requestID)
	return seed
}
