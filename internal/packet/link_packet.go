package packet

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/wire"
)

// LinkPacket is what actually crosses a physical or logical link: a
// NarrowWaistPacket plus the ReplyTo the peer should answer to, optionally
// sealed for a configured peer identity. Cleartext framing is used when no
// peer identity is configured for the link (e.g. an open UDP listener);
// ciphertext framing is used once a link has a known peer, per
// link_id.remote_link_pid() in the upstream router.
type LinkPacket struct {
	SenderIdentity identity.PublicIdentity
	ReplyTo        ReplyTo
	NarrowWaist    NarrowWaistPacket
}

// AsBytes encodes a LinkPacket for transmission. If peer is non-nil the
// narrow waist is sealed under a secret shared with peer, derived by
// Exchange scoped by a fresh random link nonce (not reversed); the reply-to
// bytes stay in the clear and are authenticated as associated data.
// Otherwise the packet is framed in cleartext.
//
// Cleartext layout: sender_identity(64) | reply_to_len(1) | reply_to | nw_len(2 BE) | narrow_waist
// Ciphertext layout: sender_identity(64) | nonce(12) | reply_to_len(1) | reply_to | sealed(nw_len(2) + narrow_waist + tag(16))
func (lp LinkPacket) AsBytes(sender *identity.PrivateIdentity, peer *identity.PublicIdentity) ([]byte, error) {
	nwBytes := linkNarrowWaistBytes(lp.NarrowWaist)
	replyBytes := ReplyToBytes(lp.ReplyTo)
	if len(replyBytes) > 255 {
		return nil, fmt.Errorf("%w: reply_to too large", ErrMalformedLinkPacket)
	}

	senderBytes := sender.PublicID().Bytes()

	var out []byte
	if peer == nil {
		out = make([]byte, 0, wire.IdentitySize+1+len(replyBytes)+2+len(nwBytes))
		out = append(out, senderBytes[:]...)
		out = append(out, byte(len(replyBytes)))
		out = append(out, replyBytes...)
		lenField := wire.U16ToU8(uint16(len(nwBytes)))
		out = append(out, lenField[:]...)
		out = append(out, nwBytes...)
	} else {
		var nonce [wire.NonceSize]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return nil, fmt.Errorf("packet: link packet nonce: %w", err)
		}
		secret, err := sender.Exchange(*peer, nonce[:])
		if err != nil {
			return nil, fmt.Errorf("packet: derive link secret: %w", err)
		}
		plain := make([]byte, 0, 2+len(nwBytes))
		lenField := wire.U16ToU8(uint16(len(nwBytes)))
		plain = append(plain, lenField[:]...)
		plain = append(plain, nwBytes...)

		aead, err := chacha20poly1305.New(secret[:])
		if err != nil {
			return nil, fmt.Errorf("packet: new aead: %w", err)
		}
		sealed := aead.Seal(nil, nonce[:], plain, replyBytes)

		out = make([]byte, 0, wire.IdentitySize+wire.NonceSize+1+len(replyBytes)+len(sealed))
		out = append(out, senderBytes[:]...)
		out = append(out, nonce[:]...)
		out = append(out, byte(len(replyBytes)))
		out = append(out, replyBytes...)
		out = append(out, sealed...)
	}

	if len(out) > wire.MaxLinkPacketSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrLinkPacketTooLarge, len(out), wire.MaxLinkPacketSize)
	}
	return out, nil
}

// LinkPacketFromBytes decodes a LinkPacket received on a link. recipient is
// this node's own private identity, needed to derive the shared secret for
// ciphertext frames; cleartext is accepted unconditionally, matching the
// upstream behavior of accepting unsolicited cleartext on an open link.
func LinkPacketFromBytes(data []byte, recipient *identity.PrivateIdentity, cleartext bool) (LinkPacket, error) {
	if len(data) < wire.IdentitySize+1 {
		return LinkPacket{}, fmt.Errorf("%w: too short", ErrMalformedLinkPacket)
	}

	var senderBytes [64]byte
	copy(senderBytes[:], data[:wire.IdentitySize])
	sender := identity.PublicIdentityFromBytes(senderBytes)
	rest := data[wire.IdentitySize:]

	if cleartext {
		if len(rest) < 1 {
			return LinkPacket{}, fmt.Errorf("%w: missing reply_to length", ErrMalformedLinkPacket)
		}
		replyLen := int(rest[0])
		rest = rest[1:]
		if len(rest) < replyLen+2 {
			return LinkPacket{}, fmt.Errorf("%w: truncated reply_to/len", ErrMalformedLinkPacket)
		}
		replyBytes := rest[:replyLen]
		rest = rest[replyLen:]
		nwLen := int(wire.U8ToU16([2]byte{rest[0], rest[1]}))
		rest = rest[2:]
		if len(rest) < nwLen {
			return LinkPacket{}, fmt.Errorf("%w: truncated narrow waist", ErrMalformedLinkPacket)
		}
		replyTo, err := ReplyToFromBytes(replyBytes)
		if err != nil {
			return LinkPacket{}, err
		}
		nw, err := linkNarrowWaistFromBytes(rest[:nwLen])
		if err != nil {
			return LinkPacket{}, err
		}
		return LinkPacket{SenderIdentity: sender, ReplyTo: replyTo, NarrowWaist: nw}, nil
	}

	if recipient == nil {
		return LinkPacket{}, fmt.Errorf("%w: ciphertext link packet requires a recipient identity", ErrMalformedLinkPacket)
	}
	if len(rest) < wire.NonceSize+1 {
		return LinkPacket{}, fmt.Errorf("%w: too short for ciphertext", ErrMalformedLinkPacket)
	}
	var nonce [wire.NonceSize]byte
	copy(nonce[:], rest[:wire.NonceSize])
	rest = rest[wire.NonceSize:]

	replyLen := int(rest[0])
	rest = rest[1:]
	if len(rest) < replyLen {
		return LinkPacket{}, fmt.Errorf("%w: truncated reply_to", ErrMalformedLinkPacket)
	}
	replyBytes := rest[:replyLen]
	sealed := rest[replyLen:]

	secret, err := recipient.Exchange(sender, nonce[:])
	if err != nil {
		return LinkPacket{}, fmt.Errorf("packet: derive link secret: %w", err)
	}
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return LinkPacket{}, fmt.Errorf("packet: new aead: %w", err)
	}
	plain, err := aead.Open(nil, nonce[:], sealed, replyBytes)
	if err != nil {
		return LinkPacket{}, fmt.Errorf("%w: decrypt failed: %v", ErrMalformedLinkPacket, err)
	}
	if len(plain) < 2 {
		return LinkPacket{}, fmt.Errorf("%w: missing narrow waist length", ErrMalformedLinkPacket)
	}
	nwLen := int(wire.U8ToU16([2]byte{plain[0], plain[1]}))
	plain = plain[2:]
	if len(plain) < nwLen {
		return LinkPacket{}, fmt.Errorf("%w: truncated narrow waist", ErrMalformedLinkPacket)
	}

	replyTo, err := ReplyToFromBytes(replyBytes)
	if err != nil {
		return LinkPacket{}, err
	}
	nw, err := linkNarrowWaistFromBytes(plain[:nwLen])
	if err != nil {
		return LinkPacket{}, err
	}
	return LinkPacket{SenderIdentity: sender, ReplyTo: replyTo, NarrowWaist: nw}, nil
}

// linkNarrowWaistBytes and linkNarrowWaistFromBytes frame a
// NarrowWaistPacket for inclusion inside a LinkPacket:
// kind(1) | hbfi_len(2) | hbfi | nonce(12) | [offset(8) total(8) sig_len(2) sig data_block(1024) tag(16) cyphertext_flag(1) if response]
func linkNarrowWaistBytes(nw NarrowWaistPacket) []byte {
	hbfiBytes := nw.HBFI.AsBytes()
	out := make([]byte, 0, 1+2+len(hbfiBytes)+wire.NonceSize+8+8+2+64+wire.FragmentSize+wire.TagSize)
	out = append(out, byte(nw.Kind))
	hLen := wire.U16ToU8(uint16(len(hbfiBytes)))
	out = append(out, hLen[:]...)
	out = append(out, hbfiBytes...)
	out = append(out, nw.Nonce[:]...)
	if nw.Kind != KindResponse {
		return out
	}
	offB := wire.U64ToU8(nw.Offset)
	totB := wire.U64ToU8(nw.Total)
	out = append(out, offB[:]...)
	out = append(out, totB[:]...)
	sigLen := wire.U16ToU8(uint16(len(nw.Signature)))
	out = append(out, sigLen[:]...)
	out = append(out, nw.Signature...)
	out = append(out, nw.Data.Block[:]...)
	out = append(out, nw.Data.Tag[:]...)
	cypher := byte(0)
	if nw.Data.Cyphertext {
		cypher = 1
	}
	out = append(out, cypher)
	return out
}

func linkNarrowWaistFromBytes(data []byte) (NarrowWaistPacket, error) {
	if len(data) < 1+2 {
		return NarrowWaistPacket{}, fmt.Errorf("%w: too short", ErrMalformedNarrowWaist)
	}
	kind := Kind(data[0])
	hLen := int(wire.U8ToU16([2]byte{data[1], data[2]}))
	off := 3
	if len(data) < off+hLen+wire.NonceSize {
		return NarrowWaistPacket{}, fmt.Errorf("%w: truncated hbfi/nonce", ErrMalformedNarrowWaist)
	}
	hbfi, err := wire.HBFIFromBytes(data[off : off+hLen])
	if err != nil {
		return NarrowWaistPacket{}, err
	}
	off += hLen
	var nonce [wire.NonceSize]byte
	copy(nonce[:], data[off:off+wire.NonceSize])
	off += wire.NonceSize

	nw := NarrowWaistPacket{Kind: kind, HBFI: hbfi, Nonce: nonce}
	if kind != KindResponse {
		return nw, nil
	}

	if len(data) < off+8+8+2 {
		return NarrowWaistPacket{}, fmt.Errorf("%w: truncated offset/total/sig_len", ErrMalformedNarrowWaist)
	}
	var offBytes, totBytes [8]byte
	copy(offBytes[:], data[off:off+8])
	off += 8
	copy(totBytes[:], data[off:off+8])
	off += 8
	nw.Offset = wire.U8ToU64(offBytes)
	nw.Total = wire.U8ToU64(totBytes)

	sigLen := int(wire.U8ToU16([2]byte{data[off], data[off+1]}))
	off += 2
	if len(data) < off+sigLen+wire.FragmentSize+wire.TagSize+1 {
		return NarrowWaistPacket{}, fmt.Errorf("%w: truncated signature/data", ErrMalformedNarrowWaist)
	}
	nw.Signature = append([]byte{}, data[off:off+sigLen]...)
	off += sigLen

	var rd ResponseData
	copy(rd.Block[:], data[off:off+wire.FragmentSize])
	off += wire.FragmentSize
	copy(rd.Tag[:], data[off:off+wire.TagSize])
	off += wire.TagSize
	rd.Cyphertext = data[off] == 1
	nw.Data = rd

	return nw, nil
}
