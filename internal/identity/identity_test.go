package identity

import "testing"

func mustIdentity(t *testing.T, seedByte byte) *PrivateIdentity {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	pi, err := NewPrivateIdentity(seed)
	if err != nil {
		t.Fatalf("NewPrivateIdentity: %v", err)
	}
	return pi
}

func TestSignVerifyRoundTrip(t *testing.T) {
	a := mustIdentity(t, 0x01)
	msg := []byte("manifest bytes")
	sig := a.Sign(msg)
	if !a.PublicID().Verify(sig, msg) {
		t.Fatal("signature failed to verify")
	}
	if a.PublicID().Verify(sig, []byte("tampered")) {
		t.Fatal("signature verified against tampered message")
	}
}

// TestExchangeSymmetry reproduces the "shared-secret symmetry" invariant:
// ECDH(a.derive(p), b_pub.derive(p)) == ECDH(b.derive(p), a_pub.derive(p)).
func TestExchangeSymmetry(t *testing.T) {
	a := mustIdentity(t, 0x02)
	b := mustIdentity(t, 0x03)
	purpose := []byte("reversed-nonce-bytes")

	secretAB, err := a.Exchange(b.PublicID(), purpose)
	if err != nil {
		t.Fatalf("a.Exchange: %v", err)
	}
	secretBA, err := b.Exchange(a.PublicID(), purpose)
	if err != nil {
		t.Fatalf("b.Exchange: %v", err)
	}
	if secretAB != secretBA {
		t.Fatalf("shared secrets differ: %x != %x", secretAB, secretBA)
	}
}

func TestExchangeDiffersByPurpose(t *testing.T) {
	a := mustIdentity(t, 0x04)
	b := mustIdentity(t, 0x05)

	s1, err := a.Exchange(b.PublicID(), []byte("purpose-1"))
	if err != nil {
		t.Fatal(err)
	}
	s2, err := a.Exchange(b.PublicID(), []byte("purpose-2"))
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("expected distinct secrets for distinct purposes")
	}
}

func TestPublicIdentityBytesRoundTrip(t *testing.T) {
	a := mustIdentity(t, 0x06)
	pub := a.PublicID()
	got := PublicIdentityFromBytes(pub.Bytes())
	if got != pub {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, pub)
	}
}
