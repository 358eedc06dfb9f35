package derive_test

import (
	"testing"

	"github.com/payreq-foundation/payreq/derive"
	"github.com/payreq-foundation/payreq/types"
)

func TestAddressIsDeterministic(t *testing.T) {
	owner := types.Identity{1, 2, 3}
	a := derive.Address(derive.NamespaceEscrow, owner, 42)
	b := derive.Address(derive.NamespaceEscrow, owner, 42)
	if a != b {
		t.Fatalf("same inputs derived different addresses: %s vs %s", a, b)
	}
}

func TestAddressVariesWithEachInput(t *testing.T) {
	owner := types.Identity{1}
	other := types.Identity{2}
	base := derive.Address(derive.NamespaceEscrow, owner, 1)

	cases := map[string]types.Address{
		"namespace": derive.Address(derive.NamespacePayRequest, owner, 1),
		"owner":     derive.Address(derive.NamespaceEscrow, other, 1),
		"requestID": derive.Address(derive.NamespaceEscrow, owner, 2),
	}
	for name, addr := range cases {
		if addr == base {
			t.Errorf("changing %s did not change the derived address", name)
		}
	}
}

func TestNamespacesAreDisjoint(t *testing.T) {
	owner := types.Identity{0xAB}
	namespaces := []string{
		derive.NamespacePayRequest,
		derive.NamespaceEscrow,
		derive.NamespaceZkPayRequest,
		derive.NamespaceZkEscrow,
	}
	seen := make(map[types.Address]string)
	for _, ns := range namespaces {
		addr := derive.Address(ns, owner, 7)
		if prev, ok := seen[addr]; ok {
			t.Errorf("namespaces %q and %q collide for the same owner/id", prev, ns)
		}
		seen[addr] = ns
	}
}

func TestPreimageLayout(t *testing.T) {
	owner := types.Identity{0x11, 0x22}
	pre := derive.Preimage(derive.NamespaceEscrow, owner, 0x0102030405060708)

	wantLen := len(derive.NamespaceEscrow) + 32 + 8
	if len(pre) != wantLen {
		t.Fatalf("preimage length %d, want %d", len(pre), wantLen)
	}
	if string(pre[:len(derive.NamespaceEscrow)]) != derive.NamespaceEscrow {
		t.Error("preimage does not start with the namespace")
	}
	// Request id is little-endian.
	le := pre[len(pre)-8:]
	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if le[i] != want[i] {
			t.Fatalf("request id byte %d = %#x, want %#x", i, le[i], want[i])
		}
	}
}
