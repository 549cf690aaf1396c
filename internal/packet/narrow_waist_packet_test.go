package packet

import (
	"bytes"
	"testing"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/wire"
)

func mustIdentity(t *testing.T, seedByte byte) *identity.PrivateIdentity {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	pi, err := identity.NewPrivateIdentity(seed)
	if err != nil {
		t.Fatal(err)
	}
	return pi
}

func TestResponseCleartextRoundTrip(t *testing.T) {
	responder := mustIdentity(t, 0x20)
	hbfi, err := wire.NewHBFI(nil, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("hello narrow waist")
	resp, err := Response(responder, hbfi, payload)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Kind != KindResponse {
		t.Fatal("expected a response")
	}
	if !resp.Verify() {
		t.Fatal("expected signature to verify")
	}

	got, err := resp.DataBytes(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
}

func TestResponseRejectsExistingRequestPID(t *testing.T) {
	responder := mustIdentity(t, 0x21)
	requester := mustIdentity(t, 0x22)
	hbfi, err := wire.NewHBFI(requesterPID(requester), responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Response(responder, hbfi, []byte("x")); err != ErrRequestPIDPresent {
		t.Fatalf("expected ErrRequestPIDPresent, got %v", err)
	}
}

func TestEncryptForRoundTrip(t *testing.T) {
	responder := mustIdentity(t, 0x23)
	requester := mustIdentity(t, 0x24)
	hbfi, err := wire.NewHBFI(nil, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("secret payload")
	cleartext, err := Response(responder, hbfi, payload)
	if err != nil {
		t.Fatal(err)
	}

	encrypted, err := cleartext.EncryptFor(responder, requester.PublicID())
	if err != nil {
		t.Fatal(err)
	}
	if !encrypted.Data.Cyphertext {
		t.Fatal("expected ciphertext response data")
	}
	if !encrypted.Verify() {
		t.Fatal("expected re-signed manifest to verify")
	}

	got, err := encrypted.DataBytes(requester)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch after decrypt: got %q want %q", got, payload)
	}

	if _, err := encrypted.DataBytes(nil); err == nil {
		t.Fatal("expected decrypt without request identity to fail")
	}
}

func TestEncryptForRejectsAlreadyCyphertext(t *testing.T) {
	responder := mustIdentity(t, 0x25)
	requester := mustIdentity(t, 0x26)
	hbfi, err := wire.NewHBFI(nil, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}
	cleartext, err := Response(responder, hbfi, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	encrypted, err := cleartext.EncryptFor(responder, requester.PublicID())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := encrypted.EncryptFor(responder, requester.PublicID()); err != ErrAlreadyCyphertext {
		t.Fatalf("expected ErrAlreadyCyphertext, got %v", err)
	}
}

func TestVerifyDetectsTamperedData(t *testing.T) {
	responder := mustIdentity(t, 0x27)
	hbfi, err := wire.NewHBFI(nil, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := Response(responder, hbfi, []byte("original"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Data.Block[0] ^= 0xFF
	if resp.Verify() {
		t.Fatal("expected tampered data to fail verification")
	}
}

func requesterPID(pi *identity.PrivateIdentity) *identity.PublicIdentity {
	pub := pi.PublicID()
	return &pub
}
