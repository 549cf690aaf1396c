package wire

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// BFI (Bloom-Filter Index) is a compact, sparse 4-tuple of bit positions
// derived from a hashed string, used as one component of an HBFI.
type BFI [BloomFilterIndexElementLength]uint16

// hashHex runs Blake2b-256 over data and renders each output byte as
// unpadded lowercase hex, exactly as the original "%x" per-byte formatting
// does. A byte value below 0x10 contributes a single hex digit, not two —
// this asymmetry is load-bearing for the derived BloomFilterIndex values
// and must not be "fixed" to zero-padded hex.
func hashHex(data []byte) string {
	sum := blake2b.Sum256(data)
	var sb strings.Builder
	sb.Grow(len(sum) * 2)
	for _, b := range sum {
		sb.WriteString(strconv.FormatUint(uint64(b), 16))
	}
	return sb.String()
}

// BloomFilterIndex derives a BFI from an arbitrary string. It double-hashes
// with Blake2b-256: once over the input, then once more per output element
// over the (hex digest || element index), folding the second digest's hex
// text into 16-character chunks summed modulo BloomFilterLength.
func BloomFilterIndex(s string) (BFI, error) {
	origHex := hashHex([]byte(s))

	var out BFI
	for n := 0; n < BloomFilterIndexElementLength; n++ {
		derivedHex := hashHex([]byte(origHex + strconv.Itoa(n)))

		var index uint64
		for i := 0; i < len(derivedHex); i += 16 {
			end := i + 16
			if end > len(derivedHex) {
				end = len(derivedHex)
			}
			chunk := derivedHex[i:end]
			v, err := strconv.ParseUint(chunk, 16, 64)
			if err != nil {
				return BFI{}, fmt.Errorf("bloom filter index: parse chunk %q: %w", chunk, err)
			}
			index = (index + v) % BloomFilterLength
		}
		out[n] = uint16(index)
	}
	return out, nil
}

// ToBytes encodes the BFI as four big-endian u16s.
func (b BFI) ToBytes() [BFIByteSize]byte {
	var out [BFIByteSize]byte
	for i, v := range b {
		pair := U16ToU8(v)
		out[i*2] = pair[0]
		out[i*2+1] = pair[1]
	}
	return out
}

// BFIFromBytes decodes four big-endian u16s into a BFI.
func BFIFromBytes(b [BFIByteSize]byte) BFI {
	var out BFI
	for i := range out {
		out[i] = U8ToU16([2]byte{b[i*2], b[i*2+1]})
	}
	return out
}
