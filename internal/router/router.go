// Package router implements the forwarding decision at the heart of the
// substrate: given an incoming request or response on one face, decide
// whether to answer from cache, which other faces to forward to, and how
// the Bayesian classifier and bloom-filter face state should be updated as
// a result.
package router

import (
	"fmt"
	"sync"

	"github.com/paradigmlink/copernica/internal/bayes"
	"github.com/paradigmlink/copernica/internal/contentstore"
	"github.com/paradigmlink/copernica/internal/face"
	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/wire"
)

// Litmus bands over the deep-six weight, named after the DEFCON readiness
// levels the upstream router's comments reference. Only Defcon1 currently
// changes behavior (the packet is dropped); the others are recorded hooks
// for future policy and default to proceeding.
type Defcon int

const (
	Defcon4 Defcon = iota // 0-35
	Defcon3               // 36-59
	Defcon2               // 60-89
	Defcon1               // 90-100: deep-sixed
)

func litmusband(weight float64) Defcon {
	litmus := uint64(weight * 100.0)
	switch {
	case litmus <= 35:
		return Defcon4
	case litmus <= 59:
		return Defcon3
	case litmus <= 89:
		return Defcon2
	default:
		return Defcon1
	}
}

// DefconHook is invoked with the non-dropping Defcon bands so callers can
// plug in policy (rate limiting, alerting) without changing the router.
// Defcon1 is handled internally and never reaches this hook.
type DefconHook func(level Defcon, hbfi wire.HBFI, weight float64)

// Router owns the per-face bloom state, the Bayesian classifier, and the
// content store for one node, and decides how an incoming packet should be
// handled.
type Router struct {
	mu      sync.Mutex
	faces   map[wire.LinkID]*face.Face
	bayes   *bayes.Bayes
	store   *contentstore.ContentStore
	deepSix wire.LinkID

	OnDefcon DefconHook
}

// New returns a Router with an empty face set. deepSix names the sentinel
// link id trained on every incoming request, used to detect traffic that
// resembles nothing any real link has ever answered.
func New(store *contentstore.ContentStore, deepSix wire.LinkID) *Router {
	return &Router{
		faces:   make(map[wire.LinkID]*face.Face),
		bayes:   bayes.New(),
		store:   store,
		deepSix: deepSix,
	}
}

// AddFace registers link as a known face, creating its bloom state and
// Bayesian candidacy.
func (r *Router) AddFace(link wire.LinkID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.faces[link]; !ok {
		r.faces[link] = face.New()
	}
	r.bayes.AddLink(link)
}

func (r *Router) faceFor(link wire.LinkID) *face.Face {
	f, ok := r.faces[link]
	if !ok {
		f = face.New()
		r.faces[link] = f
	}
	return f
}

// HandleRequest decides how to answer or forward an incoming request.
// thisLink is the face the request arrived on; forward is called (synchronously,
// while holding the router lock) for every face the request should be
// relayed to. It is the caller's responsibility to keep forward fast
// (typically a non-blocking channel send).
//
// If the content store already satisfies hbfi, HandleRequest returns the
// cached Response instead of forwarding anywhere; the caller is responsible
// for replying with it on thisLink.
func (r *Router) HandleRequest(thisLink wire.LinkID, hbfi wire.HBFI, forward func(link wire.LinkID)) (*packet.NarrowWaistPacket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.store.Get(hbfi); ok {
		return &cached, nil
	}

	thisFace := r.faceFor(thisLink)
	thisFace.CreatePending(hbfi)

	bfis := hbfi.ToBFIS()
	weights := r.bayes.Classify(bfis)
	r.bayes.Train(bfis, r.deepSix)

	if len(weights) > 0 && weights[0].Link == r.deepSix {
		band := litmusband(weights[0].Weight)
		if band == Defcon1 {
			return nil, nil
		}
		if r.OnDefcon != nil {
			r.OnDefcon(band, hbfi, weights[0].Weight)
		}
	}

	for _, lw := range weights {
		if lw.Link == r.deepSix || lw.Link == thisLink {
			continue
		}
		that := r.faceFor(lw.Link)
		if that.ContainsForwarded(hbfi) > face.WorthActingOn {
			continue
		}
		if that.ContainsPending(hbfi) > face.WorthActingOn {
			continue
		}
		if that.ContainsForwardingHint(hbfi) > face.ProbablyPresent {
			that.CreateForwarded(hbfi)
			forward(lw.Link)
			return nil, nil
		}
		that.CreateForwarded(hbfi)
		forward(lw.Link)
	}
	return nil, nil
}

// HandleResponse decides which faces a response should be relayed to.
// thisLink is the face the response arrived on; forward is called for every
// other face with a strong enough pending match to receive it.
func (r *Router) HandleResponse(thisLink wire.LinkID, hbfi wire.HBFI, nw packet.NarrowWaistPacket, forward func(link wire.LinkID)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thisFace := r.faceFor(thisLink)
	if thisFace.ContainsForwarded(hbfi) <= face.WorthActingOn {
		return nil
	}

	if err := r.store.Put(hbfi, nw); err != nil {
		return fmt.Errorf("router: cache response: %w", err)
	}
	r.bayes.SuperTrain(hbfi.ToBFIS(), thisLink)
	thisFace.DeleteForwarded(hbfi)
	thisFace.CreateForwardingHint(hbfi)
	thisFace.MaybeForgetForwardingHint()

	for link, f := range r.faces {
		if link == thisLink {
			continue
		}
		if f.ContainsPending(hbfi) > face.WorthActingOn {
			f.DeletePending(hbfi)
			forward(link)
		}
	}
	return nil
}
