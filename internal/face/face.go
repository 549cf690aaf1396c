// Package face holds the router's per-link bloom-filter state: which
// requests are pending on a link, which have been forwarded out it, and
// which names it has recently proven itself good at answering.
package face

import (
	"github.com/paradigmlink/copernica/internal/bloom"
	"github.com/paradigmlink/copernica/internal/wire"
)

// Thresholds the router uses to turn a Face's percentage scores into
// decisions.
const (
	// ProbablyPresent is the contains() percentage above which a face is
	// treated as almost certainly already tracking a name.
	ProbablyPresent = 90
	// WorthActingOn is the lower percentage above which a face's state is
	// still considered significant enough to act on.
	WorthActingOn = 50
	// ForgetThreshold is the forwarding_hint decoherence percentage that
	// triggers a partial forget before further hints are recorded.
	ForgetThreshold = 80
)

// Face is one router's view of a single link: three decaying bloom
// filters tracking pending requests, forwarded requests, and forwarding
// hints for that link.
type Face struct {
	Pending        *bloom.Decaying
	Forwarded      *bloom.Decaying
	ForwardingHint *bloom.Decaying
}

// New returns an empty Face.
func New() *Face {
	return &Face{
		Pending:        bloom.New(),
		Forwarded:      bloom.New(),
		ForwardingHint: bloom.New(),
	}
}

// CreatePending marks hbfi as awaiting a response on this face.
func (f *Face) CreatePending(hbfi wire.HBFI) { f.Pending.Create(hbfi.ToBFIS()) }

// ContainsPending reports the pending membership score (0-100) for hbfi.
func (f *Face) ContainsPending(hbfi wire.HBFI) uint8 { return f.Pending.Contains(hbfi.ToBFIS()) }

// DeletePending clears hbfi from the pending filter.
func (f *Face) DeletePending(hbfi wire.HBFI) { f.Pending.Delete(hbfi.ToBFIS()) }

// CreateForwarded marks hbfi as forwarded out this face.
func (f *Face) CreateForwarded(hbfi wire.HBFI) { f.Forwarded.Create(hbfi.ToBFIS()) }

// ContainsForwarded reports the forwarded membership score (0-100) for hbfi.
func (f *Face) ContainsForwarded(hbfi wire.HBFI) uint8 { return f.Forwarded.Contains(hbfi.ToBFIS()) }

// DeleteForwarded clears hbfi from the forwarded filter.
func (f *Face) DeleteForwarded(hbfi wire.HBFI) { f.Forwarded.Delete(hbfi.ToBFIS()) }

// CreateForwardingHint records hbfi as a name this face has recently
// answered, biasing future routing decisions toward it.
func (f *Face) CreateForwardingHint(hbfi wire.HBFI) { f.ForwardingHint.Create(hbfi.ToBFIS()) }

// ContainsForwardingHint reports the forwarding-hint membership score
// (0-100) for hbfi.
func (f *Face) ContainsForwardingHint(hbfi wire.HBFI) uint8 {
	return f.ForwardingHint.Contains(hbfi.ToBFIS())
}

// ForwardingHintDecoherence reports the forwarding-hint filter's overall
// saturation (0-100).
func (f *Face) ForwardingHintDecoherence() uint8 { return f.ForwardingHint.Decoherence() }

// MaybeForgetForwardingHint halves the forwarding-hint filter's density if
// it has grown past ForgetThreshold.
func (f *Face) MaybeForgetForwardingHint() {
	if f.ForwardingHintDecoherence() > ForgetThreshold {
		f.ForwardingHint.PartiallyForget()
	}
}
