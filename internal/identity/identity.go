// Package identity implements the small sign/verify/exchange/derive façade
// the rest of the packet substrate depends on. The upstream implementation
// derives every working key from a single root seed through a BIP32-style
// hierarchical scheme (the "keynesis" crate); the core depends on
// identity derivation only through a small trait-like surface, with the
// scheme internals left unspecified. This package reproduces that surface — a stable
// signing keypair plus a purpose-scoped, symmetric exchange secret — using
// golang.org/x/crypto primitives instead of reimplementing BIP32-over-Ed25519
// key-tweaking by hand. See DESIGN.md for the full rationale.
package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Derivation domain labels, mirroring the upstream KEYNESIS_PATH_* constants.
var (
	signingDerivationLabel  = []byte("/copernica/v1/signing")
	exchangeDerivationLabel = []byte("/copernica/v1/exchange")
)

// ErrVerification is returned by Exchange when the peer's exchange key is malformed.
var ErrVerification = errors.New("identity: peer exchange key invalid")

// PublicIdentity is the shareable half of an identity: a signing public key
// plus an exchange public key. On the wire both fields occupy the 64-byte
// slot historically described as "key + chain code"; this implementation
// repurposes the second 32 bytes to carry the exchange public key directly,
// rather than a BIP32 chain code, since no party ever needs to derive this
// identity's exchange key from anything but the identity itself.
type PublicIdentity struct {
	Key       [32]byte // Ed25519 signing public key
	ChainCode [32]byte // X25519 exchange public key
}

// PrivateIdentity is the root secret material for one node. A single
// PrivateIdentity yields one durable signing keypair and one durable
// exchange keypair; per-context secrecy comes from purpose-scoped HKDF
// expansion in Exchange, not from re-deriving new curve points per call.
type PrivateIdentity struct {
	signingPriv ed25519.PrivateKey
	signingPub  ed25519.PublicKey
	xPriv       [32]byte
	xPub        [32]byte
}

// NewPrivateIdentity derives a PrivateIdentity from a 32-byte root seed.
// The same seed always yields the same identity.
func NewPrivateIdentity(seed [32]byte) (*PrivateIdentity, error) {
	signingSeed, err := hkdfBytes(seed[:], signingDerivationLabel, ed25519.SeedSize)
	if err != nil {
		return nil, fmt.Errorf("identity: derive signing seed: %w", err)
	}
	signingPriv := ed25519.NewKeyFromSeed(signingSeed)

	xSeed, err := hkdfBytes(seed[:], exchangeDerivationLabel, 32)
	if err != nil {
		return nil, fmt.Errorf("identity: derive exchange seed: %w", err)
	}
	var xPriv [32]byte
	copy(xPriv[:], xSeed)

	xPub, err := curve25519.X25519(xPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("identity: derive exchange public key: %w", err)
	}

	pi := &PrivateIdentity{
		signingPriv: signingPriv,
		signingPub:  signingPriv.Public().(ed25519.PublicKey),
		xPriv:       xPriv,
	}
	copy(pi.xPub[:], xPub)
	return pi, nil
}

// PublicID returns the shareable identity for this node.
func (pi *PrivateIdentity) PublicID() PublicIdentity {
	var pub PublicIdentity
	copy(pub.Key[:], pi.signingPriv.Public().(ed25519.PublicKey))
	pub.ChainCode = pi.xPub
	return pub
}

// Sign signs message with this identity's durable signing key.
func (pi *PrivateIdentity) Sign(message []byte) []byte {
	return ed25519.Sign(pi.signingPriv, message)
}

// Verify checks a signature produced by the holder of pub's private identity.
func (pub PublicIdentity) Verify(signature, message []byte) bool {
	return ed25519.Verify(pub.Key[:], message, signature)
}

// Exchange derives a purpose-scoped, symmetric shared secret with peer.
// Both sides must supply the same purpose bytes; callers pass the request
// nonce (reversed, per contract) as purpose on both the encrypting and
// decrypting side, so encrypt_for reuses the request nonce rather than a
// fresh one.
func (pi *PrivateIdentity) Exchange(peer PublicIdentity, purpose []byte) ([32]byte, error) {
	raw, err := curve25519.X25519(pi.xPriv[:], peer.ChainCode[:])
	if err != nil {
		return [32]byte{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	derived, err := hkdfBytes(raw, purpose, 32)
	if err != nil {
		return [32]byte{}, fmt.Errorf("identity: derive shared secret: %w", err)
	}
	var out [32]byte
	copy(out[:], derived)
	return out, nil
}

// String renders a PublicIdentity as a stable hex string, used as the input
// to the HBFI "req"/"res" bloom-filter index derivation.
func (pub PublicIdentity) String() string {
	return hex.EncodeToString(pub.Key[:]) + hex.EncodeToString(pub.ChainCode[:])
}

// Bytes encodes a PublicIdentity as 64 bytes: signing key then exchange key.
func (pub PublicIdentity) Bytes() [64]byte {
	var out [64]byte
	copy(out[:32], pub.Key[:])
	copy(out[32:], pub.ChainCode[:])
	return out
}

// PublicIdentityFromBytes decodes a 64-byte PublicIdentity.
func PublicIdentityFromBytes(b [64]byte) PublicIdentity {
	var pub PublicIdentity
	copy(pub.Key[:], b[:32])
	copy(pub.ChainCode[:], b[32:])
	return pub
}

func hkdfBytes(secret, info []byte, size int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, info)
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
