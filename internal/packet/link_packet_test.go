package packet

import (
	"testing"

	"github.com/paradigmlink/copernica/internal/wire"
)

func TestLinkPacketCleartextRoundTrip(t *testing.T) {
	sender := mustIdentity(t, 0x30)
	responder := mustIdentity(t, 0x31)
	hbfi, err := wire.NewHBFI(nil, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}
	req, err := NewRequest(hbfi)
	if err != nil {
		t.Fatal(err)
	}

	lp := LinkPacket{
		SenderIdentity: sender.PublicID(),
		ReplyTo:        UDPv4{IP: [4]byte{127, 0, 0, 1}, Port: 9001},
		NarrowWaist:    req,
	}

	b, err := lp.AsBytes(sender, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) > wire.MaxLinkPacketSize {
		t.Fatalf("link packet exceeds MTU bound: %d", len(b))
	}

	got, err := LinkPacketFromBytes(b, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.SenderIdentity != sender.PublicID() {
		t.Fatal("sender identity mismatch")
	}
	if !got.NarrowWaist.HBFI.SameStream(hbfi) {
		t.Fatal("narrow waist hbfi mismatch after round trip")
	}
	gotUDP, ok := got.ReplyTo.(UDPv4)
	if !ok {
		t.Fatalf("expected UDPv4 reply_to, got %T", got.ReplyTo)
	}
	if gotUDP.Port != 9001 || gotUDP.IP != [4]byte{127, 0, 0, 1} {
		t.Fatalf("reply_to mismatch: %+v", gotUDP)
	}
}

func TestLinkPacketCyphertextRoundTrip(t *testing.T) {
	sender := mustIdentity(t, 0x32)
	recipient := mustIdentity(t, 0x33)
	responder := mustIdentity(t, 0x34)
	hbfi, err := wire.NewHBFI(nil, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := Response(responder, hbfi, []byte("payload over the wire"))
	if err != nil {
		t.Fatal(err)
	}

	lp := LinkPacket{
		SenderIdentity: sender.PublicID(),
		ReplyTo:        MAC48{Addr: [6]byte{1, 2, 3, 4, 5, 6}},
		NarrowWaist:    resp,
	}

	recipientPID := recipient.PublicID()
	b, err := lp.AsBytes(sender, &recipientPID)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) > wire.MaxLinkPacketSize {
		t.Fatalf("link packet exceeds MTU bound: %d", len(b))
	}

	got, err := LinkPacketFromBytes(b, recipient, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.SenderIdentity != sender.PublicID() {
		t.Fatal("sender identity mismatch")
	}
	if !got.NarrowWaist.Verify() {
		t.Fatal("expected decoded narrow waist signature to verify")
	}
	data, err := got.NarrowWaist.DataBytes(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload over the wire" {
		t.Fatalf("payload mismatch: %q", data)
	}
	if _, ok := got.ReplyTo.(MAC48); !ok {
		t.Fatalf("expected MAC48 reply_to, got %T", got.ReplyTo)
	}
}

// TestEncryptedResponseOverEncryptedLinkRoundTrip carries a response that is
// already sealed at the narrow-waist layer (hbfi names a requester) inside a
// link packet that is itself sealed for a specific link peer. The two
// encryption layers are independent: the narrow waist stays opaque to
// anyone but the requester even after the link-layer seal is removed.
func TestEncryptedResponseOverEncryptedLinkRoundTrip(t *testing.T) {
	sender := mustIdentity(t, 0x35)
	requester := mustIdentity(t, 0x36)
	responder := mustIdentity(t, 0x37)
	linkPeer := mustIdentity(t, 0x38)

	requesterPID := requester.PublicID()
	hbfi, err := wire.NewHBFI(&requesterPID, responder.PublicID(), "app", "m0d", "fun", "arg")
	if err != nil {
		t.Fatal(err)
	}

	req, err := NewRequest(hbfi)
	if err != nil {
		t.Fatal(err)
	}

	payload := make([]byte, 600)
	resp, err := req.Transmute(responder, payload, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Data.Cyphertext {
		t.Fatal("expected narrow waist response data to already be sealed for the requester")
	}

	lp := LinkPacket{
		SenderIdentity: sender.PublicID(),
		ReplyTo:        MAC48{Addr: [6]byte{9, 8, 7, 6, 5, 4}},
		NarrowWaist:    resp,
	}

	linkPeerPID := linkPeer.PublicID()
	b, err := lp.AsBytes(sender, &linkPeerPID)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) > wire.MaxLinkPacketSize {
		t.Fatalf("link packet exceeds MTU bound: %d", len(b))
	}

	got, err := LinkPacketFromBytes(b, linkPeer, false)
	if err != nil {
		t.Fatal(err)
	}
	if !got.NarrowWaist.Verify() {
		t.Fatal("expected decoded narrow waist signature to verify")
	}
	if got.NarrowWaist.Offset != 100 || got.NarrowWaist.Total != 100 {
		t.Fatalf("offset/total mismatch: %d/%d", got.NarrowWaist.Offset, got.NarrowWaist.Total)
	}

	data, err := got.NarrowWaist.DataBytes(requester)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 600 {
		t.Fatalf("expected 600-byte payload, got %d", len(data))
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("expected all-zero payload, byte %d = %d", i, b)
		}
	}

	if _, err := got.NarrowWaist.DataBytes(nil); err == nil {
		t.Fatal("expected decrypt without the requester's identity to fail")
	}
}
