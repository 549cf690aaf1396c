package packet

import "github.com/paradigmlink/copernica/internal/wire"

// LinkID identifies one configured link (face) a router can receive from or
// forward through.
type LinkID = wire.LinkID

// InterLinkPacket pairs a LinkPacket with the LinkID it arrived on (or
// should be sent out on), the unit routers actually pass between the
// receive worker, the router, and the send worker.
type InterLinkPacket struct {
	LinkID     LinkID
	LinkPacket LinkPacket
}

// NewInterLinkPacket builds an InterLinkPacket pairing.
func NewInterLinkPacket(id LinkID, lp LinkPacket) InterLinkPacket {
	return InterLinkPacket{LinkID: id, LinkPacket: lp}
}
