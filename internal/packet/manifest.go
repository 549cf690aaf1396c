package packet

import (
	"encoding/binary"

	"github.com/paradigmlink/copernica/internal/wire"
)

// manifest builds the deterministic signing domain for a response narrow
// waist: a concatenation of length-prefixed fields over (data, hbfi,
// offset, total, nonce). Using explicit 4-byte length prefixes (rather
// than textual formatting) ensures two independent implementations sign
// and verify identical bytes.
func manifest(dataBlock [wire.FragmentSize]byte, hbfiBytes []byte, offset, total uint64, nonce [wire.NonceSize]byte) []byte {
	buf := make([]byte, 0, 4+len(dataBlock)+4+len(hbfiBytes)+8+8+wire.NonceSize)
	buf = appendLengthPrefixed(buf, dataBlock[:])
	buf = appendLengthPrefixed(buf, hbfiBytes)
	buf = binary.BigEndian.AppendUint64(buf, offset)
	buf = binary.BigEndian.AppendUint64(buf, total)
	buf = append(buf, nonce[:]...)
	return buf
}

func appendLengthPrefixed(buf []byte, field []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(field)))
	return append(buf, field...)
}

// reverseNonce returns a copy of nonce with its bytes in reverse order, as
// required before deriving the response/request shared secret. Reversing
// the nonce before derivation is part of the contract both sides must
// follow to land on the same shared secret.
func reverseNonce(nonce [wire.NonceSize]byte) [wire.NonceSize]byte {
	var out [wire.NonceSize]byte
	for i, b := range nonce {
		out[wire.NonceSize-1-i] = b
	}
	return out
}
