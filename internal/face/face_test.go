package face

import (
	"testing"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/wire"
)

func mustHBFI(t *testing.T, seedByte byte, arg string) wire.HBFI {
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
	return h
}

func TestFaceLifecycle(t *testing.T) {
	f := New()
	h := mustHBFI(t, 0x40, "arg")

	if f.ContainsPending(h) != 0 {
		t.Fatal("expected no pending state initially")
	}
	f.CreatePending(h)
	if f.ContainsPending(h) < ProbablyPresent {
		t.Fatal("expected pending to be strongly present after create")
	}
	f.DeletePending(h)
	if f.ContainsPending(h) != 0 {
		t.Fatal("expected pending cleared after delete")
	}

	f.CreateForwarded(h)
	if f.ContainsForwarded(h) < ProbablyPresent {
		t.Fatal("expected forwarded to be strongly present after create")
	}
	f.DeleteForwarded(h)

	f.CreateForwardingHint(h)
	if f.ContainsForwardingHint(h) < ProbablyPresent {
		t.Fatal("expected forwarding hint to be strongly present after create")
	}
}

func TestMaybeForgetForwardingHint(t *testing.T) {
	f := New()
	for i := 0; i < 200; i++ {
		h := mustHBFI(t, byte(i%256), "arg")
		f.CreateForwardingHint(h)
	}
	if f.ForwardingHintDecoherence() <= ForgetThreshold {
		t.Skip("did not saturate enough to exercise forget path")
	}
	before := f.ForwardingHintDecoherence()
	f.MaybeForgetForwardingHint()
	after := f.ForwardingHintDecoherence()
	if after >= before {
		t.Fatalf("expected decoherence to drop after forgetting: before=%d after=%d", before, after)
	}
}
