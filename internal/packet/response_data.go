package packet

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/paradigmlink/copernica/internal/wire"
)

// ResponseData is the fixed-size payload block carried by a Response
// narrow-waist packet. Every cleartext block is exactly FragmentSize bytes;
// the last three bytes are (random_byte, len_hi, len_lo) so every frame on
// the wire has the same length regardless of payload size. The Tag field is
// only meaningful when Cyphertext is true.
type ResponseData struct {
	Cyphertext bool
	Block      [wire.FragmentSize]byte
	Tag        [wire.TagSize]byte
}

// NewCleartextResponseData frames payload into a zero-padded cleartext
// block. Padding must be zero (not random) so that two independent signers
// of the same logical response compute the same manifest.
func NewCleartextResponseData(payload []byte) (ResponseData, error) {
	if len(payload) > wire.DataSize {
		return ResponseData{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), wire.DataSize)
	}
	var rd ResponseData
	copy(rd.Block[:], payload)
	writeTrailer(&rd.Block, len(payload))
	return rd, nil
}

// EncryptBlock seals payload into a ciphertext ResponseData using the
// 32-byte shared secret and 12-byte nonce supplied by the caller.
func EncryptBlock(payload []byte, key [32]byte, nonce [wire.NonceSize]byte) (ResponseData, error) {
	if len(payload) > wire.DataSize {
		return ResponseData{}, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), wire.DataSize)
	}
	var block [wire.FragmentSize]byte
	if _, err := rand.Read(block[:]); err != nil {
		return ResponseData{}, fmt.Errorf("packet: random pad: %w", err)
	}
	copy(block[:], payload)
	writeTrailer(&block, len(payload))

	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return ResponseData{}, fmt.Errorf("packet: new aead: %w", err)
	}
	sealed := aead.Seal(nil, nonce[:], block[:], nil)

	var rd ResponseData
	rd.Cyphertext = true
	copy(rd.Block[:], sealed[:wire.FragmentSize])
	copy(rd.Tag[:], sealed[wire.FragmentSize:])
	return rd, nil
}

// Decrypt authenticates and decrypts a ciphertext ResponseData, returning
// the original payload bytes.
func (rd ResponseData) Decrypt(key [32]byte, nonce [wire.NonceSize]byte) ([]byte, error) {
	if !rd.Cyphertext {
		return rd.Extract()
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("packet: new aead: %w", err)
	}
	sealed := make([]byte, 0, wire.FragmentSize+wire.TagSize)
	sealed = append(sealed, rd.Block[:]...)
	sealed = append(sealed, rd.Tag[:]...)
	plain, err := aead.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("packet: decrypt: %w", err)
	}
	var block [wire.FragmentSize]byte
	copy(block[:], plain)
	return extractFrom(block)
}

// Extract returns the payload bytes of a cleartext ResponseData.
func (rd ResponseData) Extract() ([]byte, error) {
	if rd.Cyphertext {
		return nil, fmt.Errorf("%w: called Extract on ciphertext block", ErrMalformedResponse)
	}
	return extractFrom(rd.Block)
}

func writeTrailer(block *[wire.FragmentSize]byte, payloadLen int) {
	var randomByte [1]byte
	_, _ = rand.Read(randomByte[:])
	lenBytes := wire.U16ToU8(uint16(payloadLen))
	block[wire.FragmentSize-3] = randomByte[0]
	block[wire.FragmentSize-2] = lenBytes[0]
	block[wire.FragmentSize-1] = lenBytes[1]
}

func extractFrom(block [wire.FragmentSize]byte) ([]byte, error) {
	length := wire.U8ToU16([2]byte{block[wire.FragmentSize-2], block[wire.FragmentSize-1]})
	if int(length) > wire.DataSize {
		return nil, fmt.Errorf("%w: trailer length %d exceeds DataSize", ErrMalformedResponse, length)
	}
	out := make([]byte, length)
	copy(out, block[:length])
	return out, nil
}
