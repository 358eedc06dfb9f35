// Package pedersen implements the reference CommitmentScheme: Pedersen
// commitments on edwards25519 with a bit-decomposition range proof.
//
// A commitment to value v under blinding r is C = v·G + r·H, where G is the
// curve's base point and H is a second generator derived by hashing to the
// curve, so its discrete log relative to G is unknown. The scheme is
// perfectly hiding and computationally binding.
package pedersen

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

// BlindingLen is the length of a canonical blinding factor in bytes.
const BlindingLen = 32

// Scheme is a Pedersen commitment scheme over edwards25519.
type Scheme struct {
	g *edwards25519.Point
	h *edwards25519.Point
}

// New creates the scheme with the protocol's fixed generators.
func New() *Scheme {
	return &Scheme{
		g: edwards25519.NewGeneratorPoint(),
		h: altGenerator(),
	}
}

// altGenerator derives the second generator H by hashing a domain tag and the
// base point encoding to a curve point (try-and-increment), then clearing the
// cofactor. Nothing-up-my-sleeve: no party knows log_G(H).
func altGenerator() *edwards25519.Point {
	eight := scalarFromUint64(8)
	identity := edwards25519.NewIdentityPoint()

	seed := sha3.Sum256(append([]byte("payreq/pedersen/h/v1"), edwards25519.NewGeneratorPoint().Bytes()...))
	for {
		if p, err := new(edwards25519.Point).SetBytes(seed[:]); err == nil {
			h := new(edwards25519.Point).ScalarMult(eight, p)
			if h.Equal(identity) != 1 {
				return h
			}
		}
		seed = sha3.Sum256(seed[:])
	}
}

// NewBlinding draws a fresh random blinding factor.
func NewBlinding() ([]byte, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return nil, fmt.Errorf("draw blinding: %w", err)
	}
	s, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("reduce blinding: %w", err)
	}
	return s.Bytes(), nil
}

// Commit produces C = value·G + blinding·H.
func (s *Scheme) Commit(value uint64, blinding []byte) (types.Commitment, error) {
	r, err := scalarFromBlinding(blinding)
	if err != nil {
		return types.Commitment{}, err
	}
	c := s.commitPoint(value, r)

	var out types.Commitment
	copy(out[:], c.Bytes())
	return out, nil
}

// VerifyPayment checks that a revealed amount opens the commitment. The proof
// is the 32-byte blinding factor the commitment was created under.
func (s *Scheme) VerifyPayment(commitment types.Commitment, amount uint64, proof []byte) error {
	if len(proof) != BlindingLen {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidPaymentProof, "payment proof must be a 32-byte commitment opening", nil)
	}
	r, err := new(edwards25519.Scalar).SetCanonicalBytes(proof)
	if err != nil {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidPaymentProof, "payment proof is not a canonical scalar", nil)
	}

	expected := s.commitPoint(amount, r).Bytes()
	if subtle.ConstantTimeCompare(expected, commitment[:]) != 1 {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidPaymentProof, "revealed amount does not open the commitment", nil)
	}
	return nil
}

func (s *Scheme) commitPoint(value uint64, r *edwards25519.Scalar) *edwards25519.Point {
	vg := new(edwards25519.Point).ScalarMult(scalarFromUint64(value), s.g)
	rh := new(edwards25519.Point).ScalarMult(r, s.h)
	return new(edwards25519.Point).Add(vg, rh)
}

func scalarFromBlinding(blinding []byte) (*edwards25519.Scalar, error) {
	if len(blinding) != BlindingLen {
		return nil, payreq.NewProtocolError(payreq.ErrCodeInvalidCommitment, "blinding factor must be 32 bytes", nil)
	}
	r, err := new(edwards25519.Scalar).SetCanonicalBytes(blinding)
	if err != nil {
		return nil, payreq.NewProtocolError(payreq.ErrCodeInvalidCommitment, "blinding factor is not a canonical scalar", nil)
	}
	return r, nil
}

func scalarFromUint64(v uint64) *edwards25519.Scalar {
	var b [32]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(b[:])
	if err != nil {
		// Unreachable: any uint64 is far below the group order.
		panic(fmt.Sprintf("pedersen: non-canonical uint64 scalar: %v", err))
	}
	return s
}

var _ payreq.CommitmentScheme = (*Scheme)(nil)
