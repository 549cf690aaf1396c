package packet

import (
	"crypto/rand"
	"fmt"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/wire"
)

// Kind discriminates the two shapes a NarrowWaistPacket can take.
type Kind uint8

const (
	// KindRequest names a chunk without carrying any payload.
	KindRequest Kind = iota
	// KindResponse carries a signed, possibly encrypted payload chunk.
	KindResponse
)

// NarrowWaistPacket is the single-shape request/response envelope around
// which all forwarding logic pivots. Request and Response are a tagged
// union distinguished by Kind; Signature, Data, Offset and Total are only
// populated for Response.
type NarrowWaistPacket struct {
	Kind      Kind
	HBFI      wire.HBFI
	Nonce     [wire.NonceSize]byte
	Signature []byte
	Data      ResponseData
	Offset    uint64
	Total     uint64
}

// NewRequest names hbfi as a fresh Request with a random nonce.
func NewRequest(hbfi wire.HBFI) (NarrowWaistPacket, error) {
	var nonce [wire.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return NarrowWaistPacket{}, fmt.Errorf("packet: generate request nonce: %w", err)
	}
	return NarrowWaistPacket{Kind: KindRequest, HBFI: hbfi, Nonce: nonce}, nil
}

// Transmute signs data as the Response to an existing Request, under the
// responder's private identity. If nw.HBFI carries no request identity, the
// response is built in cleartext, its universally-cacheable form; use
// EncryptFor later to address a cleartext-cached copy to a specific
// requester. If nw.HBFI already names a requester, Transmute seals the
// response to that requester directly, deriving the shared secret the same
// way EncryptFor does: ECDH(responseSID, requestPID) scoped by the
// request's own nonce, reversed. Reusing that nonce rather than minting a
// fresh one is what lets the requester, who only ever learns the nonce
// carried on its own request, re-derive the same secret. Transmute fails if
// self already is a Response.
func (nw NarrowWaistPacket) Transmute(responseSID *identity.PrivateIdentity, data []byte, offset, total uint64) (NarrowWaistPacket, error) {
	if nw.Kind == KindResponse {
		return NarrowWaistPacket{}, ErrAlreadyResponse
	}

	out := NarrowWaistPacket{
		Kind:   KindResponse,
		HBFI:   nw.HBFI,
		Nonce:  nw.Nonce,
		Offset: offset,
		Total:  total,
	}

	if nw.HBFI.RequestPID != nil {
		secret, err := responseSID.Exchange(*nw.HBFI.RequestPID, reverseNonce(nw.Nonce)[:])
		if err != nil {
			return NarrowWaistPacket{}, fmt.Errorf("packet: derive response shared secret: %w", err)
		}
		rd, err := EncryptBlock(data, secret, nw.Nonce)
		if err != nil {
			return NarrowWaistPacket{}, err
		}
		out.Data = rd
	} else {
		rd, err := NewCleartextResponseData(data)
		if err != nil {
			return NarrowWaistPacket{}, err
		}
		out.Data = rd
	}

	out.Signature = responseSID.Sign(manifest(out.Data.Block, out.HBFI.AsBytes(), out.Offset, out.Total, out.Nonce))
	return out, nil
}

// Response builds a cleartext Response directly from hbfi, without an
// intervening Request value. hbfi must carry no request identity: an
// anonymous HBFI's response can only ever be cleartext, and this
// constructor is how the responder mints that initial, universally-
// cacheable copy. Offset and total both default to hbfi.Frame,
// naming a single-chunk response; callers producing multi-chunk streams
// should use Transmute directly with explicit offsets.
func Response(responseSID *identity.PrivateIdentity, hbfi wire.HBFI, data []byte) (NarrowWaistPacket, error) {
	if hbfi.RequestPID != nil {
		return NarrowWaistPacket{}, ErrRequestPIDPresent
	}
	req, err := NewRequest(hbfi)
	if err != nil {
		return NarrowWaistPacket{}, err
	}
	return req.Transmute(responseSID, data, hbfi.Frame, hbfi.Frame)
}

// EncryptFor re-signs and re-encrypts an existing cleartext Response for a
// specific requester, deriving the shared secret the same way on both ends:
// ECDH(responseSID.derive(reversed_nonce), requestPID.derive(reversed_nonce)).
// The *request* nonce is reused here rather than a freshly generated one —
// using a fresh nonce would make the ciphertext undecryptable by the
// requester, since the
// requester only ever learns the nonce carried on the original request.
func (nw NarrowWaistPacket) EncryptFor(responseSID *identity.PrivateIdentity, requestPID identity.PublicIdentity) (NarrowWaistPacket, error) {
	if nw.Kind != KindResponse {
		return NarrowWaistPacket{}, ErrNotAResponse
	}
	if nw.Data.Cyphertext {
		return NarrowWaistPacket{}, ErrAlreadyCyphertext
	}
	if responseSID.PublicID() != nw.HBFI.ResponsePID {
		return NarrowWaistPacket{}, ErrResponsePIDMismatch
	}
	if !nw.Verify() {
		return NarrowWaistPacket{}, ErrSignatureInvalid
	}

	payload, err := nw.Data.Extract()
	if err != nil {
		return NarrowWaistPacket{}, err
	}

	encryptedHBFI, err := nw.HBFI.EncryptFor(requestPID)
	if err != nil {
		return NarrowWaistPacket{}, err
	}

	secret, err := responseSID.Exchange(requestPID, reverseNonce(nw.Nonce)[:])
	if err != nil {
		return NarrowWaistPacket{}, fmt.Errorf("packet: derive response shared secret: %w", err)
	}

	rd, err := EncryptBlock(payload, secret, nw.Nonce)
	if err != nil {
		return NarrowWaistPacket{}, err
	}

	out := nw
	out.HBFI = encryptedHBFI
	out.Data = rd
	out.Signature = responseSID.Sign(manifest(out.Data.Block, out.HBFI.AsBytes(), out.Offset, out.Total, out.Nonce))
	return out, nil
}

// Verify recomputes the manifest over the current state and checks the
// signature against hbfi.ResponsePID. Always false for a Request.
func (nw NarrowWaistPacket) Verify() bool {
	if nw.Kind != KindResponse {
		return false
	}
	m := manifest(nw.Data.Block, nw.HBFI.AsBytes(), nw.Offset, nw.Total, nw.Nonce)
	return nw.HBFI.ResponsePID.Verify(nw.Signature, m)
}

// DataBytes returns the payload bytes, verifying the signature first. For a
// ciphertext response, requestSID must be the private identity matching
// hbfi.RequestPID so the shared secret can be re-derived.
func (nw NarrowWaistPacket) DataBytes(requestSID *identity.PrivateIdentity) ([]byte, error) {
	if !nw.Verify() {
		return nil, ErrSignatureInvalid
	}
	if !nw.Data.Cyphertext {
		return nw.Data.Extract()
	}
	if requestSID == nil {
		return nil, fmt.Errorf("packet: ciphertext response requires a request identity to decrypt")
	}
	secret, err := requestSID.Exchange(nw.HBFI.ResponsePID, reverseNonce(nw.Nonce)[:])
	if err != nil {
		return nil, fmt.Errorf("packet: derive request shared secret: %w", err)
	}
	return nw.Data.Decrypt(secret, nw.Nonce)
}
