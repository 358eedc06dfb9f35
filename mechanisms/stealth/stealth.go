// Package stealth implements the reference StealthAddressing mechanism.
//
// A stealth address is derived with HKDF-SHA256 (extract-then-expand) over
// owner ∥ le64(request id) ∥ ephemeral key. Without the ephemeral key the
// address is unlinkable to the owner; with the ephemeral secret the owner can
// recompute it and produce a MAC-style ownership proof bound to the request.
package stealth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

const (
	infoAddress = "stealth-address"
	infoProof   = "ownership-proof"

	// macLen is the length of the binding tag at the tail of every
	// ownership proof.
	macLen = sha256.Size
)

// Addressing is the HKDF-based StealthAddressing implementation.
type Addressing struct{}

// New creates the mechanism.
func New() *Addressing {
	return &Addressing{}
}

// DeriveStealth derives the one-time address for
// (owner, requestID, ephemeralKey).
func (a *Addressing) DeriveStealth(owner types.Identity, requestID uint64, ephemeralKey [32]byte) types.Address {
	var addr types.Address
	expand(ikm(owner, requestID, ephemeralKey), infoAddress, addr[:])
	return addr
}

// ProveOwnership produces a self-contained ownership proof: the caller's
// material followed by an HMAC binding (owner, requestID, ephemeralSecret,
// material) together. The material may be empty.
func (a *Addressing) ProveOwnership(owner types.Identity, requestID uint64, ephemeralSecret [32]byte, material []byte) ([]byte, error) {
	if len(material)+macLen > types.MaxOwnershipProofLen {
		return nil, payreq.NewProtocolError(payreq.ErrCodeInvalidReceiverProof, "proof material exceeds declared maximum", map[string]interface{}{
			"max_bytes": types.MaxOwnershipProofLen - macLen,
			"got_bytes": len(material),
		})
	}

	proof := make([]byte, 0, len(material)+macLen)
	proof = append(proof, material...)
	proof = append(proof, bindingTag(owner, requestID, ephemeralSecret, material)...)
	return proof, nil
}

// VerifyOwnership recomputes the stealth address from the claimed secret and
// checks it against the stored one, then checks the binding tag over the
// proof material. Address mismatch fails with ErrCodeUnauthorizedReceiver; a
// short or unbound proof fails with ErrCodeInvalidReceiverProof.
func (a *Addressing) VerifyOwnership(stealth types.Address, owner types.Identity, requestID uint64, proof []byte, ephemeralSecret [32]byte) error {
	if a.DeriveStealth(owner, requestID, ephemeralSecret) != stealth {
		return payreq.NewProtocolError(payreq.ErrCodeUnauthorizedReceiver, "ephemeral secret does not derive the stealth address", nil)
	}
	if len(proof) < macLen {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidReceiverProof, "ownership proof is too short", nil)
	}

	material := proof[:len(proof)-macLen]
	tag := proof[len(proof)-macLen:]
	if !hmac.Equal(tag, bindingTag(owner, requestID, ephemeralSecret, material)) {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidReceiverProof, "ownership proof is not bound to this request", nil)
	}
	return nil
}

func bindingTag(owner types.Identity, requestID uint64, ephemeralSecret [32]byte, material []byte) []byte {
	var key [32]byte
	expand(ikm(owner, requestID, ephemeralSecret), infoProof, key[:])

	mac := hmac.New(sha256.New, key[:])
	mac.Write(owner[:])
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], requestID)
	mac.Write(id[:])
	mac.Write(material)
	return mac.Sum(nil)
}

func ikm(owner types.Identity, requestID uint64, ephemeral [32]byte) []byte {
	seed := make([]byte, 0, 32+8+32)
	seed = append(seed, owner[:]...)
	seed = binary.LittleEndian.AppendUint64(seed, requestID)
	seed = append(seed, ephemeral[:]...)
	return seed
}

func expand(ikm []byte, info string, out []byte) {
	kdf := hkdf.New(sha256.New, ikm, nil, []byte(info))
	if _, err := io.ReadFull(kdf, out); err != nil {
		// Unreachable: HKDF-SHA256 yields far more than 32 bytes.
		panic(fmt.Sprintf("stealth: hkdf expand: %v", err))
	}
}

var _ payreq.StealthAddressing = (*Addressing)(nil)
