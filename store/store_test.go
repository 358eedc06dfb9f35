package store

import (
	"bytes"
	"context"
	"testing"

	payreq "github.com/payreq-foundation/payreq"
	"github.com/payreq-foundation/payreq/types"
)

func TestPutGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	addr := types.Address{1}

	if err := s.Put(ctx, addr, []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("got %q, want %q", got, "v1")
	}

	if err := s.Update(ctx, addr, []byte("v2")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.Get(ctx, addr)
	if !bytes.Equal(got, []byte("v2")) {
		t.Errorf("got %q after update, want %q", got, "v2")
	}

	if err := s.Delete(ctx, addr); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, holds %d", s.Len())
	}
}

func TestPutExistingFails(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	addr := types.Address{1}

	if err := s.Put(ctx, addr, []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := s.Put(ctx, addr, []byte("v2"))
	if !payreq.IsCode(err, payreq.ErrCodeRequestExists) {
		t.Errorf("expected request_exists, got %v", err)
	}
}

func TestMissingAddressFails(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	addr := types.Address{9}

	if _, err := s.Get(ctx, addr); !payreq.IsCode(err, payreq.ErrCodeRequestNotFound) {
		t.Errorf("get: expected request_not_found, got %v", err)
	}
	if err := s.Update(ctx, addr, nil); !payreq.IsCode(err, payreq.ErrCodeRequestNotFound) {
		t.Errorf("update: expected request_not_found, got %v", err)
	}
	if err := s.Delete(ctx, addr); !payreq.IsCode(err, payreq.ErrCodeRequestNotFound) {
		t.Errorf("delete: expected request_not_found, got %v", err)
	}
}

func TestStoredBytesDoNotAliasCaller(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	addr := types.Address{1}

	data := []byte("original")
	if err := s.Put(ctx, addr, data); err != nil {
		t.Fatalf("put: %v", err)
	}
	data[0] = 'X'

	got, err := s.Get(ctx, addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("original")) {
		t.Error("caller mutation leaked into stored bytes")
	}

	got[0] = 'Y'
	again, _ := s.Get(ctx, addr)
	if !bytes.Equal(again, []byte("original")) {
		t.Error("reader mutation leaked into stored bytes")
	}
}
