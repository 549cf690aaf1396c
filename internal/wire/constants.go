// Package wire holds the fixed-width constants and byte-level codec
// primitives shared by every on-the-wire structure in the packet substrate:
// the bloom-filter index (BFI), the hierarchical name built from six of them
// (HBFI), and the big-endian integer helpers the rest of the codec builds on.
package wire

// Fixed sizes shared across the wire format. All multi-byte integer fields
// on the wire are big-endian.
const (
	// BloomFilterLength is the bit-length of a link-local decaying bloom
	// filter.
	BloomFilterLength = 2048

	// BloomFilterIndexElementLength is the number of u16 entries in a BFI.
	BloomFilterIndexElementLength = 4

	// BFICount is the number of BFIs folded into an HBFI: res, req, app,
	// m0d, fun, arg.
	BFICount = 6

	// BFIByteSize is the encoded byte size of one BFI (4 x u16).
	BFIByteSize = BloomFilterIndexElementLength * 2

	// FrameSize is the byte size of the HBFI frame counter (u64 BE).
	FrameSize = 8

	// IDSize is the byte size of a public identity's signing key component.
	IDSize = 32

	// CCSize is the byte size of a public identity's exchange-key
	// component, carried in the wire slot historically labelled
	// "chain code" (see DESIGN.md for why this slot is reused).
	CCSize = 32

	// IdentitySize is the encoded size of one PublicIdentity (key + cc).
	IdentitySize = IDSize + CCSize

	// NonceSize is the ChaCha20-Poly1305 nonce length.
	NonceSize = 12

	// TagSize is the Poly1305 authentication tag length.
	TagSize = 16

	// FragmentSize is the fixed cleartext payload+metadata block size.
	// Chosen so a ciphertext LinkPacket carrying a full Response narrow
	// waist still fits comfortably under the 1472-byte IPv4-safe UDP MTU
	// budget.
	FragmentSize = 1024

	// DataSize is the number of payload bytes available in a fragment
	// before the 3-byte trailer.
	DataSize = FragmentSize - 3

	// MaxLinkPacketSize is the MTU bound every emitted LinkPacket must
	// respect.
	MaxLinkPacketSize = 1472
)

// HBFI encoded sizes.
const (
	// hbfiBodySize is six BFIs plus the frame counter, common to both
	// HBFI encodings.
	hbfiBodySize = BFICount*BFIByteSize + FrameSize

	// CleartextHBFISize is the encoded size of an HBFI with no request
	// identity (six BFIs + frame + one PublicIdentity).
	CleartextHBFISize = hbfiBodySize + IdentitySize

	// CyphertextHBFISize is the encoded size of an HBFI with a request
	// identity present (six BFIs + frame + two PublicIdentities).
	CyphertextHBFISize = hbfiBodySize + 2*IdentitySize
)

// LinkID identifies one configured link (face) a router can receive from or
// forward through. It lives here, rather than in the packet or router
// packages, because the Bayesian classifier, the face bloom state, and the
// wire-level link packet framing all need to name links without importing
// each other.
type LinkID uint32

// U16ToU8 encodes a u16 as two big-endian bytes.
func U16ToU8(v uint16) [2]byte {
	return [2]byte{byte(v >> 8), byte(v)}
}

// U8ToU16 decodes two big-endian bytes into a u16.
func U8ToU16(b [2]byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// U64ToU8 encodes a u64 as eight big-endian bytes.
func U64ToU8(v uint64) [8]byte {
	var out [8]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (56 - 8*i))
	}
	return out
}

// U8ToU64 decodes eight big-endian bytes into a u64.
func U8ToU64(b [8]byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
