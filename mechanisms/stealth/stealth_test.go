package stealth

import (
	"testing"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

var (
	owner     = types.Identity{0x01, 0x02}
	ephemeral = [32]byte{0xEE, 0x01}
)

func TestDeriveStealthIsDeterministic(t *testing.T) {
	a := New()
	if a.DeriveStealth(owner, 1, ephemeral) != a.DeriveStealth(owner, 1, ephemeral) {
		t.Error("same inputs derived different stealth addresses")
	}
}

func TestDeriveStealthVariesWithEachInput(t *testing.T) {
	a := New()
	base := a.DeriveStealth(owner, 1, ephemeral)

	if a.DeriveStealth(types.Identity{0x09}, 1, ephemeral) == base {
		t.Error("changing the owner did not change the address")
	}
	if a.DeriveStealth(owner, 2, ephemeral) == base {
		t.Error("changing the request id did not change the address")
	}
	if a.DeriveStealth(owner, 1, [32]byte{0xFF}) == base {
		t.Error("changing the ephemeral key did not change the address")
	}
}

func TestOwnershipProofRoundTrip(t *testing.T) {
	a := New()
	addr := a.DeriveStealth(owner, 1, ephemeral)

	for _, material := range [][]byte{nil, []byte("receipt-reference")} {
		proof, err := a.ProveOwnership(owner, 1, ephemeral, material)
		if err != nil {
			t.Fatalf("prove: %v", err)
		}
		if len(proof) > types.MaxOwnershipProofLen {
			t.Fatalf("proof of %d bytes exceeds the cap", len(proof))
		}
		if err := a.VerifyOwnership(addr, owner, 1, proof, ephemeral); err != nil {
			t.Errorf("valid proof rejected: %v", err)
		}
	}
}

func TestVerifyOwnershipRejectsWrongSecret(t *testing.T) {
	a := New()
	addr := a.DeriveStealth(owner, 1, ephemeral)
	proof, err := a.ProveOwnership(owner, 1, ephemeral, nil)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	err = a.VerifyOwnership(addr, owner, 1, proof, [32]byte{0xBA, 0xD0})
	if !payreq.IsCode(err, payreq.ErrCodeUnauthorizedReceiver) {
		t.Errorf("expected unauthorized_receiver, got %v", err)
	}
}

func TestVerifyOwnershipRejectsForeignProof(t *testing.T) {
	a := New()
	addr := a.DeriveStealth(owner, 1, ephemeral)

	// A proof minted for another request id does not bind here even though
	// the secret is right.
	foreign, err := a.ProveOwnership(owner, 2, ephemeral, []byte("m"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	err = a.VerifyOwnership(addr, owner, 1, foreign, ephemeral)
	if !payreq.IsCode(err, payreq.ErrCodeInvalidReceiverProof) {
		t.Errorf("expected invalid_receiver_proof, got %v", err)
	}
}

func TestVerifyOwnershipRejectsTamperedMaterial(t *testing.T) {
	a := New()
	addr := a.DeriveStealth(owner, 1, ephemeral)
	proof, err := a.ProveOwnership(owner, 1, ephemeral, []byte("material"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	proof[0] ^= 0x01
	err = a.VerifyOwnership(addr, owner, 1, proof, ephemeral)
	if !payreq.IsCode(err, payreq.ErrCodeInvalidReceiverProof) {
		t.Errorf("expected invalid_receiver_proof, got %v", err)
	}

	err = a.VerifyOwnership(addr, owner, 1, []byte("short"), ephemeral)
	if !payreq.IsCode(err, payreq.ErrCodeInvalidReceiverProof) {
		t.Errorf("expected invalid_receiver_proof for short proof, got %v", err)
	}
}

func TestProveOwnershipRejectsOversizedMaterial(t *testing.T) {
	a := New()
	material := make([]byte, types.MaxOwnershipProofLen)
	_, err := a.ProveOwnership(owner, 1, ephemeral, material)
	if !payreq.IsCode(err, payreq.ErrCodeInvalidReceiverProof) {
		t.Errorf("expected invalid_receiver_proof, got %v", err)
	}
}
