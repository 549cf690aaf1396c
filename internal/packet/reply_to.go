package packet

import (
	"encoding/binary"
	"fmt"
)

// ReplyTo names the local transport endpoint a LinkPacket arrived on or
// should be sent to. Every variant round-trips through a byte slice whose
// length alone identifies which variant it is — no leading tag byte — per
// each transport's approximate wire length. UDPv4 is tagged (prefixed with 0x04) purely to keep its 6-byte
// payload from colliding with the untagged 6-byte MAC48 encoding; every
// other variant's length is already unique.
type ReplyTo interface {
	replyToBytes() []byte
	isReplyTo()
}

// Mailbox names a purely local, address-less endpoint: a loopback face used
// for in-process testing and the deep-six sink.
type Mailbox struct{}

func (Mailbox) isReplyTo()            {}
func (Mailbox) replyToBytes() []byte  { return nil }

// RF names a radio-frequency channel by its 4-byte channel identifier.
type RF struct {
	Channel [4]byte
}

func (RF) isReplyTo() {}
func (r RF) replyToBytes() []byte {
	return append([]byte{}, r.Channel[:]...)
}

// MAC48 names an Ethernet endpoint by its 6-byte hardware address.
type MAC48 struct {
	Addr [6]byte
}

func (MAC48) isReplyTo() {}
func (m MAC48) replyToBytes() []byte {
	return append([]byte{}, m.Addr[:]...)
}

// MAC64 names an 8-byte extended hardware address (e.g. EUI-64).
type MAC64 struct {
	Addr [8]byte
}

func (MAC64) isReplyTo() {}
func (m MAC64) replyToBytes() []byte {
	return append([]byte{}, m.Addr[:]...)
}

// UDPv4 names an IPv4 socket address. Tagged with a leading 0x04 so its
// 7-byte encoding never collides with MAC48's untagged 6 bytes.
type UDPv4 struct {
	IP   [4]byte
	Port uint16
}

func (UDPv4) isReplyTo() {}
func (u UDPv4) replyToBytes() []byte {
	out := make([]byte, 0, 7)
	out = append(out, 0x04)
	out = append(out, u.IP[:]...)
	out = binary.BigEndian.AppendUint16(out, u.Port)
	return out
}

// UDPv6 names an IPv6 socket address: 16 address bytes plus a 2-byte port,
// the longest of the recognized ReplyTo encodings.
type UDPv6 struct {
	IP   [16]byte
	Port uint16
}

func (UDPv6) isReplyTo() {}
func (u UDPv6) replyToBytes() []byte {
	out := make([]byte, 0, 18)
	out = append(out, u.IP[:]...)
	out = binary.BigEndian.AppendUint16(out, u.Port)
	return out
}

// ReplyToBytes encodes r for wire transmission.
func ReplyToBytes(r ReplyTo) []byte {
	if r == nil {
		return nil
	}
	return r.replyToBytes()
}

// ReplyToFromBytes decodes a ReplyTo from its wire bytes, dispatching purely
// on length as described on ReplyTo.
func ReplyToFromBytes(b []byte) (ReplyTo, error) {
	switch len(b) {
	case 0:
		return Mailbox{}, nil
	case 4:
		var rf RF
		copy(rf.Channel[:], b)
		return rf, nil
	case 6:
		var m MAC48
		copy(m.Addr[:], b)
		return m, nil
	case 7:
		if b[0] != 0x04 {
			return nil, fmt.Errorf("%w: malformed udpv4 tag", ErrUnknownReplyTo)
		}
		var u UDPv4
		copy(u.IP[:], b[1:5])
		u.Port = binary.BigEndian.Uint16(b[5:7])
		return u, nil
	case 8:
		var m MAC64
		copy(m.Addr[:], b)
		return m, nil
	case 18:
		var u UDPv6
		copy(u.IP[:], b[:16])
		u.Port = binary.BigEndian.Uint16(b[16:18])
		return u, nil
	default:
		return nil, fmt.Errorf("%w: length %d", ErrUnknownReplyTo, len(b))
	}
}
