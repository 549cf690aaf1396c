// Package node wires a Router, its per-link channels, and a TxRx engine per
// link into one running participant in the substrate. Faces here are
// channel-backed: Non-goals exclude a real network transport, so a Link is
// an in-process chan packet.InterLinkPacket pair, the same shape the
// upstream implementation's mpsc links take. A transport adapter (UDP,
// radio, whatever) plugs in later by pumping bytes to/from these channels;
// none exists yet, so today the channels connect directly to another Node
// or a test harness.
package node

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/metrics"
	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/router"
	"github.com/paradigmlink/copernica/internal/txrx"
	"github.com/paradigmlink/copernica/internal/wire"
)

// inboundBuffer is the channel capacity node.AddLink creates for the
// inbound side of a link, bounding how far a slow dispatch loop can fall
// behind its peer before that peer's send blocks.
const inboundBuffer = 64

// linkState is everything a link's dispatch goroutine needs: its name for
// metrics/logging, the outbound channel to relay/reply on, and the TxRx
// engine that lets this node originate requests over it.
type linkState struct {
	name   string
	out    chan<- packet.InterLinkPacket
	in     chan packet.InterLinkPacket
	engine *txrx.Engine
}

// Node owns the router, identity, and per-link state for one participant.
// One goroutine per link reads that link's inbound channel and feeds the
// router, the same one-goroutine-per-unit-of-concurrency shape used
// elsewhere in this codebase for per-session dispatch.
type Node struct {
	logger  *slog.Logger
	id      *identity.PrivateIdentity
	router  *router.Router
	metrics *metrics.Collector

	mu    sync.RWMutex
	links map[wire.LinkID]*linkState
}

// New builds a Node around an already-constructed Router and identity.
// store and deepSix are not owned here; callers construct the ContentStore
// and Router (see contentstore.New, router.New) and pass them in so tests
// can share a store across nodes if desired.
func New(id *identity.PrivateIdentity, r *router.Router, mr *metrics.Collector, logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		logger:  logger,
		id:      id,
		router:  r,
		metrics: mr,
		links:   make(map[wire.LinkID]*linkState),
	}
	if mr != nil {
		r.OnDefcon = func(level router.Defcon, _ wire.HBFI, _ float64) {
			mr.RecordDefconBand(defconLabel(level))
		}
	}
	return n
}

// defconLabel names a Defcon band for metrics, mirroring the
// Defcon1/2/3/4 naming the router's litmus bands use internally.
func defconLabel(level router.Defcon) string {
	switch level {
	case router.Defcon1:
		return "defcon1"
	case router.Defcon2:
		return "defcon2"
	case router.Defcon3:
		return "defcon3"
	default:
		return "defcon4"
	}
}

// AddLink registers a channel-backed face. out is written to by this node
// whenever it forwards, replies, or originates a request on the link; the
// caller (another Node, a transport adapter, or a test) is expected to be
// reading it. The returned channel is this link's inbound side: feed
// packet.InterLinkPacket values into it to simulate frames arriving.
//
// The returned *txrx.Engine lets the caller originate requests over this
// link with the node's own identity as protocol signer.
func (n *Node) AddLink(id wire.LinkID, name string, out chan<- packet.InterLinkPacket) (chan<- packet.InterLinkPacket, *txrx.Engine) {
	n.mu.Lock()
	defer n.mu.Unlock()

	in := make(chan packet.InterLinkPacket, inboundBuffer)
	engine := txrx.New(id, n.id, packet.Mailbox{}, out)

	n.links[id] = &linkState{name: name, out: out, in: in, engine: engine}
	n.router.AddFace(id)
	if n.metrics != nil {
		n.metrics.RegisterLink(name)
	}

	n.logger.Info("link registered", slog.Uint64("link_id", uint64(id)), slog.String("name", name))
	return in, engine
}

// RemoveLink stops routing to id. The link's inbound channel is abandoned;
// callers must stop their dispatch goroutine for it separately by
// cancelling the context passed to Run.
func (n *Node) RemoveLink(id wire.LinkID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ls, ok := n.links[id]
	if !ok {
		return
	}
	delete(n.links, id)
	if n.metrics != nil {
		n.metrics.UnregisterLink(ls.name)
	}
}

// Engine returns the TxRx engine for an already-registered link, or nil.
func (n *Node) Engine(id wire.LinkID) *txrx.Engine {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if ls, ok := n.links[id]; ok {
		return ls.engine
	}
	return nil
}

// Run starts one dispatch goroutine per currently registered link and
// blocks until ctx is cancelled or a dispatch loop returns an error.
// Links added after Run has started are not picked up; register every link
// before calling Run.
func (n *Node) Run(ctx context.Context) error {
	n.mu.RLock()
	snapshot := make(map[wire.LinkID]*linkState, len(n.links))
	for id, ls := range n.links {
		snapshot[id] = ls
	}
	n.mu.RUnlock()

	g, gCtx := errgroup.WithContext(ctx)
	for id, ls := range snapshot {
		id, ls := id, ls
		g.Go(func() error {
			return n.dispatch(gCtx, id, ls)
		})
	}
	return g.Wait()
}

func (n *Node) dispatch(ctx context.Context, thisLink wire.LinkID, ls *linkState) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ilp := <-ls.in:
			n.handle(thisLink, ls, ilp)
		}
	}
}

// handle processes one inbound frame on thisLink: requests are matched
// against the content store or forwarded per the router's Bayesian
// decision, responses are cached and relayed to every face with a strong
// enough pending match.
func (n *Node) handle(thisLink wire.LinkID, ls *linkState, ilp packet.InterLinkPacket) {
	lp := ilp.LinkPacket
	nw := lp.NarrowWaist
	hbfi := nw.HBFI

	forward := func(link wire.LinkID) {
		n.relay(link, lp)
	}

	switch nw.Kind {
	case packet.KindRequest:
		if n.metrics != nil {
			n.metrics.IncRequestsReceived(ls.name)
		}
		cached, err := n.router.HandleRequest(thisLink, hbfi, forward)
		if err != nil {
			n.logger.Warn("handle request failed",
				slog.Uint64("link_id", uint64(thisLink)),
				slog.String("error", err.Error()),
			)
			return
		}
		if cached != nil {
			if n.metrics != nil {
				n.metrics.IncContentStoreHit()
			}
			n.reply(thisLink, ls, lp.ReplyTo, *cached)
			return
		}
		if n.metrics != nil {
			n.metrics.IncContentStoreMiss()
		}

	case packet.KindResponse:
		if n.metrics != nil {
			n.metrics.IncResponsesReceived(ls.name)
		}
		if err := n.router.HandleResponse(thisLink, hbfi, nw, forward); err != nil {
			n.logger.Warn("handle response failed",
				slog.Uint64("link_id", uint64(thisLink)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// relay forwards lp onward on link, substituting this node's own identity
// as sender since the frame is now being re-sent on a different face.
func (n *Node) relay(link wire.LinkID, lp packet.LinkPacket) {
	n.mu.RLock()
	ls, ok := n.links[link]
	n.mu.RUnlock()
	if !ok {
		return
	}

	out := packet.LinkPacket{
		SenderIdentity: n.id.PublicID(),
		ReplyTo:        packet.Mailbox{},
		NarrowWaist:    lp.NarrowWaist,
	}

	select {
	case ls.out <- packet.InterLinkPacket{LinkID: link, LinkPacket: out}:
		if n.metrics != nil {
			n.metrics.IncPacketsForwarded(ls.name)
		}
	default:
		if n.metrics != nil {
			n.metrics.IncPacketsDropped(ls.name, "backpressure")
		}
		n.logger.Warn("dropped frame: outbound link full",
			slog.Uint64("link_id", uint64(link)),
		)
	}
}

// reply answers a request on thisLink with a cached Response, addressing it
// to the replyTo the request arrived carrying.
func (n *Node) reply(thisLink wire.LinkID, ls *linkState, replyTo packet.ReplyTo, nw packet.NarrowWaistPacket) {
	out := packet.LinkPacket{
		SenderIdentity: n.id.PublicID(),
		ReplyTo:        replyTo,
		NarrowWaist:    nw,
	}

	select {
	case ls.out <- packet.InterLinkPacket{LinkID: thisLink, LinkPacket: out}:
		if n.metrics != nil {
			n.metrics.IncPacketsForwarded(ls.name)
		}
	default:
		if n.metrics != nil {
			n.metrics.IncPacketsDropped(ls.name, "backpressure")
		}
		n.logger.Warn("dropped reply: outbound link full",
			slog.Uint64("link_id", uint64(thisLink)),
		)
	}
}
