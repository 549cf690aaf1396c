// Package txrx implements the sliding-window, AIMD-controlled request
// engine protocols use to turn a single narrow-waist request/response
// primitive into a byte stream: issue many frame requests at once, learn
// from what comes back, and reassemble the successes in order.
//
// The upstream engine answers this with a mutex-guarded response map fed by
// a background thread per in-flight request. Here the same request/response
// bookkeeping happens inline, in the calling goroutine, via select over the
// response channel and a retry timer — no extra goroutine or lock is
// needed because one Engine serves one caller's in-flight request at a
// time. A caller wanting concurrent outstanding requests over the same link
// should run multiple Engines, one per concurrently-active stream.
package txrx

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/wire"
)

// ReliabilityKind selects how aggressively a Request recovers from loss.
type ReliabilityKind int

const (
	// UnreliableSequenced is best-effort: a lost frame is never re-sent.
	UnreliableSequenced ReliabilityKind = iota
	// ReliableSequenced re-sends a lost frame only if its offset is at or
	// above the highest offset answered so far; older losses are written
	// off as stale.
	ReliableSequenced
	// ReliableOrdered re-sends every lost frame until it succeeds or
	// retries are exhausted.
	ReliableOrdered
)

// Engine drives one (link, protocol identity) pair's request/response
// traffic: it sends narrow-waist requests, reassembles their responses
// under a sliding-window AIMD congestion controller, and answers inbound
// requests addressed to this protocol.
type Engine struct {
	linkID      wire.LinkID
	protocolSID *identity.PrivateIdentity
	replyTo     packet.ReplyTo
	send        chan<- packet.InterLinkPacket
}

// New returns an Engine that sends on send, addressed as linkID, replying
// to replyTo, signing as protocolSID.
func New(linkID wire.LinkID, protocolSID *identity.PrivateIdentity, replyTo packet.ReplyTo, send chan<- packet.InterLinkPacket) *Engine {
	return &Engine{linkID: linkID, protocolSID: protocolSID, replyTo: replyTo, send: send}
}

// Respond builds a Response narrow waist for hbfi carrying data and sends it
// back out this engine's link. Unlike packet.Response, which only ever mints
// the anonymous cleartext form, Respond goes through NewRequest and Transmute
// directly so that a hbfi naming a requester gets a response already sealed
// for that requester, not a rejection.
func (e *Engine) Respond(ctx context.Context, hbfi wire.HBFI, data []byte) error {
	req, err := packet.NewRequest(hbfi)
	if err != nil {
		return fmt.Errorf("txrx: build response: %w", err)
	}
	nw, err := req.Transmute(e.protocolSID, data, hbfi.Frame, hbfi.Frame)
	if err != nil {
		return fmt.Errorf("txrx: build response: %w", err)
	}
	return e.sendCtx(ctx, nw)
}

func (e *Engine) sendCtx(ctx context.Context, nw packet.NarrowWaistPacket) error {
	lp := packet.LinkPacket{SenderIdentity: e.protocolSID.PublicID(), ReplyTo: e.replyTo, NarrowWaist: nw}
	select {
	case e.send <- packet.NewInterLinkPacket(e.linkID, lp):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UnreliableSequencedRequest is Request pinned to UnreliableSequenced.
func (e *Engine) UnreliableSequencedRequest(ctx context.Context, rx <-chan packet.InterLinkPacket, hbfiSeek wire.HBFI, start, end uint64, retries int, windowTimeout time.Duration) ([][]byte, error) {
	return e.Request(ctx, UnreliableSequenced, rx, hbfiSeek, start, end, retries, windowTimeout)
}

// ReliableSequencedRequest is Request pinned to ReliableSequenced.
func (e *Engine) ReliableSequencedRequest(ctx context.Context, rx <-chan packet.InterLinkPacket, hbfiSeek wire.HBFI, start, end uint64, retries int, windowTimeout time.Duration) ([][]byte, error) {
	return e.Request(ctx, ReliableSequenced, rx, hbfiSeek, start, end, retries, windowTimeout)
}

// ReliableOrderedRequest is Request pinned to ReliableOrdered.
func (e *Engine) ReliableOrderedRequest(ctx context.Context, rx <-chan packet.InterLinkPacket, hbfiSeek wire.HBFI, start, end uint64, retries int, windowTimeout time.Duration) ([][]byte, error) {
	return e.Request(ctx, ReliableOrdered, rx, hbfiSeek, start, end, retries, windowTimeout)
}

// Request issues narrow-waist requests for every frame in [start, end] of
// hbfiSeek's stream, growing the congestion window by one on every fully
// successful round and collapsing it to one on any loss, per mode's
// re-queue policy. It returns the reassembled payloads in offset order,
// skipping any offset that never arrived.
func (e *Engine) Request(ctx context.Context, mode ReliabilityKind, rx <-chan packet.InterLinkPacket, hbfiSeek wire.HBFI, start, end uint64, retries int, windowTimeout time.Duration) ([][]byte, error) {
	if end < start {
		return nil, fmt.Errorf("txrx: end %d precedes start %d", end, start)
	}

	pending := make([]uint64, 0, end-start+1)
	for off := start; off <= end; off++ {
		pending = append(pending, off)
	}
	responses := make(map[uint64]packet.NarrowWaistPacket, len(pending))
	var seqHead uint64
	cwnd := uint64(1)

	for retries > 0 && len(pending) > 0 {
		n := cwnd
		if n > uint64(len(pending)) {
			n = uint64(len(pending))
		}
		inFlight := make(map[uint64]struct{}, n)
		window := pending[:n]
		pending = pending[n:]
		for _, off := range window {
			inFlight[off] = struct{}{}
			req, err := packet.NewRequest(hbfiSeek.Offset(off))
			if err != nil {
				return nil, err
			}
			if err := e.sendCtx(ctx, req); err != nil {
				return nil, err
			}
		}

		succeeded, err := e.awaitWindow(ctx, mode, hbfiSeek, rx, inFlight, responses, &seqHead, windowTimeout)
		if err != nil {
			return nil, err
		}

		if succeeded {
			cwnd++
			continue
		}

		retries--
		var failed []uint64
		for off := range inFlight {
			if _, ok := responses[off]; !ok {
				failed = append(failed, off)
			}
		}
		cwnd = 1
		switch mode {
		case ReliableOrdered:
			pending = append(pending, failed...)
		case ReliableSequenced:
			for _, off := range failed {
				if off >= seqHead {
					pending = append(pending, off)
				}
			}
		case UnreliableSequenced:
			// lost frames are not retried.
		}
		sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })
	}

	return e.reconstruct(start, end, responses), nil
}

// awaitWindow blocks until every in-flight offset has a matching response
// or windowTimeout elapses, updating seqHead for ReliableSequenced mode as
// responses arrive out of order.
func (e *Engine) awaitWindow(
	ctx context.Context,
	mode ReliabilityKind,
	hbfiSeek wire.HBFI,
	rx <-chan packet.InterLinkPacket,
	inFlight map[uint64]struct{},
	responses map[uint64]packet.NarrowWaistPacket,
	seqHead *uint64,
	windowTimeout time.Duration,
) (bool, error) {
	timer := time.NewTimer(windowTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case ilp := <-rx:
			nw := ilp.LinkPacket.NarrowWaist
			if nw.Kind != packet.KindResponse || !nw.HBFI.SameStream(hbfiSeek) {
				continue
			}
			if mode == ReliableSequenced && nw.HBFI.Frame > *seqHead {
				*seqHead = nw.HBFI.Frame
			}
			if _, wanted := inFlight[nw.HBFI.Frame]; wanted {
				responses[nw.HBFI.Frame] = nw
			}
			if allAnswered(inFlight, responses) {
				return true, nil
			}
		case <-timer.C:
			return false, nil
		}
	}
}

func allAnswered(inFlight map[uint64]struct{}, responses map[uint64]packet.NarrowWaistPacket) bool {
	for off := range inFlight {
		if _, ok := responses[off]; !ok {
			return false
		}
	}
	return true
}

func (e *Engine) reconstruct(start, end uint64, responses map[uint64]packet.NarrowWaistPacket) [][]byte {
	out := make([][]byte, 0, end-start+1)
	for off := start; off <= end; off++ {
		nw, ok := responses[off]
		if !ok {
			continue
		}
		data, err := nw.DataBytes(e.protocolSID)
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}
