package pedersen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/bits"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

// The range proof shows that a committed value v lies in [min, max] without
// revealing it. Both sides are proven over the same commitment:
//
//	side 0: v − min ∈ [0, 2^n)  against  C − min·G
//	side 1: max − v ∈ [0, 2^n)  against  max·G − C
//
// Each side decomposes its witness into n bit commitments Ci = bi·G + ri·H
// with Σ 2^i·Ci equal to the side's commitment, and proves each Ci opens to
// 0 or 1 with a two-branch Schnorr OR proof, made non-interactive by
// Fiat–Shamir over a SHAKE256 transcript. Since both witnesses are below
// 2^64 and sum to max − min, the bound is exact on both ends.
const (
	rangeProofVersion = 1

	// per bit: Ci ∥ c0 ∥ c1 ∥ z0 ∥ z1
	bitProofLen = 5 * 32

	rangeProofHeaderLen = 2
)

const rangeProofDomain = "payreq/rangeproof/v1"

// ProveRange proves value ∈ [min, max] for the commitment created with the
// given blinding factor.
func (s *Scheme) ProveRange(value uint64, blinding []byte, min, max uint64) ([]byte, error) {
	if min >= max {
		return nil, payreq.NewProtocolError(payreq.ErrCodeInvalidRange, "invalid amount range specified", nil)
	}
	if value < min || value > max {
		return nil, payreq.NewProtocolError(payreq.ErrCodeAmountOutOfRange, "value is outside the requested range", nil)
	}
	r, err := scalarFromBlinding(blinding)
	if err != nil {
		return nil, err
	}

	n := bits.Len64(max - min)
	commitment := s.commitPoint(value, r).Bytes()

	proof := make([]byte, 0, rangeProofHeaderLen+2*n*bitProofLen)
	proof = append(proof, rangeProofVersion, byte(n))

	sideA, err := s.proveSide(commitment, min, max, 0, value-min, r, n)
	if err != nil {
		return nil, err
	}
	proof = append(proof, sideA...)

	sideB, err := s.proveSide(commitment, min, max, 1, max-value, new(edwards25519.Scalar).Negate(r), n)
	if err != nil {
		return nil, err
	}
	proof = append(proof, sideB...)

	return proof, nil
}

// VerifyRange checks a range proof against a commitment and bounds. Pure
// function of its inputs.
func (s *Scheme) VerifyRange(commitment types.Commitment, proof []byte, min, max uint64) error {
	if min >= max {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidRange, "invalid amount range specified", nil)
	}
	if len(proof) < rangeProofHeaderLen || proof[0] != rangeProofVersion {
		return errInvalidRangeProof("missing or unsupported proof header")
	}
	n := int(proof[1])
	if n < 1 || n > 64 {
		return errInvalidRangeProof("bit width out of bounds")
	}
	if len(proof) != rangeProofHeaderLen+2*n*bitProofLen {
		return errInvalidRangeProof("truncated or oversized proof body")
	}

	c, err := new(edwards25519.Point).SetBytes(commitment[:])
	if err != nil {
		return payreq.NewProtocolError(payreq.ErrCodeInvalidCommitment, "commitment is not a curve point", nil)
	}

	sideALen := n * bitProofLen
	targetA := new(edwards25519.Point).Subtract(c, new(edwards25519.Point).ScalarMult(scalarFromUint64(min), s.g))
	if err := s.verifySide(commitment[:], min, max, 0, targetA, proof[rangeProofHeaderLen:rangeProofHeaderLen+sideALen], n); err != nil {
		return err
	}

	targetB := new(edwards25519.Point).Subtract(new(edwards25519.Point).ScalarMult(scalarFromUint64(max), s.g), c)
	return s.verifySide(commitment[:], min, max, 1, targetB, proof[rangeProofHeaderLen+sideALen:], n)
}

func (s *Scheme) proveSide(commitment []byte, min, max uint64, side byte, w uint64, blind *edwards25519.Scalar, n int) ([]byte, error) {
	// Bit blindings: random except r0, which balances Σ 2^i·ri = blind.
	rs := make([]*edwards25519.Scalar, n)
	weighted := new(edwards25519.Scalar)
	for i := 1; i < n; i++ {
		ri, err := randomScalar()
		if err != nil {
			return nil, err
		}
		rs[i] = ri
		weighted = weighted.Add(weighted, new(edwards25519.Scalar).Multiply(scalarFromUint64(1<<uint(i)), ri))
	}
	rs[0] = new(edwards25519.Scalar).Subtract(blind, weighted)

	out := make([]byte, 0, n*bitProofLen)
	for i := 0; i < n; i++ {
		bit := (w >> uint(i)) & 1

		ci := new(edwards25519.Point).ScalarMult(rs[i], s.h)
		if bit == 1 {
			ci = ci.Add(ci, s.g)
		}
		ciBytes := ci.Bytes()

		// Branch statements: P0 = Ci = r·H, P1 = Ci − G = r·H.
		p0 := ci
		p1 := new(edwards25519.Point).Subtract(ci, s.g)

		k, err := randomScalar()
		if err != nil {
			return nil, err
		}
		cOther, err := randomScalar()
		if err != nil {
			return nil, err
		}
		zOther, err := randomScalar()
		if err != nil {
			return nil, err
		}

		aReal := new(edwards25519.Point).ScalarMult(k, s.h)
		pOther := p1
		if bit == 1 {
			pOther = p0
		}
		aOther := new(edwards25519.Point).Subtract(
			new(edwards25519.Point).ScalarMult(zOther, s.h),
			new(edwards25519.Point).ScalarMult(cOther, pOther),
		)

		var a0, a1 *edwards25519.Point
		if bit == 0 {
			a0, a1 = aReal, aOther
		} else {
			a0, a1 = aOther, aReal
		}

		c := challengeScalar(commitment, min, max, side, i, ciBytes, a0.Bytes(), a1.Bytes())
		cReal := new(edwards25519.Scalar).Subtract(c, cOther)
		zReal := new(edwards25519.Scalar).MultiplyAdd(cReal, rs[i], k)

		var c0, c1, z0, z1 *edwards25519.Scalar
		if bit == 0 {
			c0, c1, z0, z1 = cReal, cOther, zReal, zOther
		} else {
			c0, c1, z0, z1 = cOther, cReal, zOther, zReal
		}

		out = append(out, ciBytes...)
		out = append(out, c0.Bytes()...)
		out = append(out, c1.Bytes()...)
		out = append(out, z0.Bytes()...)
		out = append(out, z1.Bytes()...)
	}
	return out, nil
}

func (s *Scheme) verifySide(commitment []byte, min, max uint64, side byte, target *edwards25519.Point, body []byte, n int) error {
	sum := edwards25519.NewIdentityPoint()

	for i := 0; i < n; i++ {
		chunk := body[i*bitProofLen : (i+1)*bitProofLen]
		ciBytes := chunk[0:32]

		ci, err := new(edwards25519.Point).SetBytes(ciBytes)
		if err != nil {
			return errInvalidRangeProof("bit commitment is not a curve point")
		}
		c0, err := new(edwards25519.Scalar).SetCanonicalBytes(chunk[32:64])
		if err != nil {
			return errInvalidRangeProof("non-canonical challenge share")
		}
		c1, err := new(edwards25519.Scalar).SetCanonicalBytes(chunk[64:96])
		if err != nil {
			return errInvalidRangeProof("non-canonical challenge share")
		}
		z0, err := new(edwards25519.Scalar).SetCanonicalBytes(chunk[96:128])
		if err != nil {
			return errInvalidRangeProof("non-canonical response")
		}
		z1, err := new(edwards25519.Scalar).SetCanonicalBytes(chunk[128:160])
		if err != nil {
			return errInvalidRangeProof("non-canonical response")
		}

		sum = sum.Add(sum, new(edwards25519.Point).ScalarMult(scalarFromUint64(1<<uint(i)), ci))

		p0 := ci
		p1 := new(edwards25519.Point).Subtract(ci, s.g)

		a0 := new(edwards25519.Point).Subtract(
			new(edwards25519.Point).ScalarMult(z0, s.h),
			new(edwards25519.Point).ScalarMult(c0, p0),
		)
		a1 := new(edwards25519.Point).Subtract(
			new(edwards25519.Point).ScalarMult(z1, s.h),
			new(edwards25519.Point).ScalarMult(c1, p1),
		)

		c := challengeScalar(commitment, min, max, side, i, ciBytes, a0.Bytes(), a1.Bytes())
		if new(edwards25519.Scalar).Add(c0, c1).Equal(c) != 1 {
			return errInvalidRangeProof("challenge shares do not match transcript")
		}
	}

	if sum.Equal(target) != 1 {
		return errInvalidRangeProof("bit commitments do not recompose the commitment")
	}
	return nil
}

func challengeScalar(commitment []byte, min, max uint64, side byte, bit int, ci, a0, a1 []byte) *edwards25519.Scalar {
	shake := sha3.NewShake256()
	shake.Write([]byte(rangeProofDomain))
	shake.Write(commitment)

	var bounds [16]byte
	binary.LittleEndian.PutUint64(bounds[0:8], min)
	binary.LittleEndian.PutUint64(bounds[8:16], max)
	shake.Write(bounds[:])

	shake.Write([]byte{side, byte(bit)})
	shake.Write(ci)
	shake.Write(a0)
	shake.Write(a1)

	var wide [64]byte
	shake.Read(wide[:])
	c, err := new(edwards25519.Scalar).SetUniformBytes(wide[:])
	if err != nil {
		// Unreachable: SetUniformBytes accepts any 64 bytes.
		panic(fmt.Sprintf("pedersen: challenge reduction: %v", err))
	}
	return c
}

func randomScalar() (*edwards25519.Scalar, error) {
	var wide [64]byte
	if _, err := rand.Read(wide[:]); err != nil {
		return nil, fmt.Errorf("draw scalar: %w", err)
	}
	return new(edwards25519.Scalar).SetUniformBytes(wide[:])
}

func errInvalidRangeProof(msg string) error {
	return payreq.NewProtocolError(payreq.ErrCodeInvalidProof, "invalid range proof: "+msg, nil)
}
