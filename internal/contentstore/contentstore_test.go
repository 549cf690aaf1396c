package contentstore

import (
	"testing"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/wire"
)

func mustResponse(t *testing.T, seedByte byte, arg string) (wire.HBFI, packet.NarrowWaistPacket) {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	pi, err := identity.NewPrivateIdentity(seed)
	if err != nil {
		t.Fatal(err)
	}
	h, err := wire.NewHBFI(nil, pi.PublicID(), "app", "m0d", "fun", arg)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := packet.Response(pi, h, []byte(arg))
	if err != nil {
		t.Fatal(err)
	}
	return h, resp
}

func TestPutGetContains(t *testing.T) {
	cs, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	h, resp := mustResponse(t, 0x50, "one")

	if cs.Contains(h) {
		t.Fatal("expected empty store to not contain hbfi")
	}
	if err := cs.Put(h, resp); err != nil {
		t.Fatal(err)
	}
	if !cs.Contains(h) {
		t.Fatal("expected store to contain hbfi after put")
	}
	got, ok := cs.Get(h)
	if !ok {
		t.Fatal("expected get to find cached response")
	}
	data, err := got.DataBytes(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one" {
		t.Fatalf("unexpected cached payload: %q", data)
	}
}

func TestPutRejectsRequest(t *testing.T) {
	cs, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	h, _ := mustResponse(t, 0x51, "two")
	req, err := packet.NewRequest(h)
	if err != nil {
		t.Fatal(err)
	}
	if err := cs.Put(h, req); err == nil {
		t.Fatal("expected Put to reject a Request narrow waist")
	}
}

func TestEviction(t *testing.T) {
	cs, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	h1, r1 := mustResponse(t, 0x52, "a")
	h2, r2 := mustResponse(t, 0x53, "b")

	if err := cs.Put(h1, r1); err != nil {
		t.Fatal(err)
	}
	if err := cs.Put(h2, r2); err != nil {
		t.Fatal(err)
	}
	if cs.Contains(h1) {
		t.Fatal("expected first entry to be evicted at capacity 1")
	}
	if !cs.Contains(h2) {
		t.Fatal("expected second entry to remain")
	}
	if cs.Len() != 1 {
		t.Fatalf("expected length 1, got %d", cs.Len())
	}
}
