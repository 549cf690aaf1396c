// Package bloom implements the per-face decaying bloom filters that back
// probabilistic "have I seen this name before" tests across the forwarding
// plane: pending requests, forwarded requests, and forwarding hints.
package bloom

import (
	"math/rand"

	"github.com/bits-and-blooms/bitset"

	"github.com/paradigmlink/copernica/internal/wire"
)

// totalHitsExpected is the number of bit positions a single HBFI sets:
// four u16 indices per BFI across all six BFIs folded into the name.
const totalHitsExpected = wire.BFICount * wire.BloomFilterIndexElementLength

// Decaying is a fixed-size bloom filter over 2048 bits that ages rather
// than growing without bound: entries are never individually expired, but
// partial forgetting (density halving) keeps long-lived faces from
// saturating. It is not safe for concurrent use; callers serialize access
// (internal/router holds its mutex around every face operation).
type Decaying struct {
	bits *bitset.BitSet
}

// New returns an empty decaying bloom filter of wire.BloomFilterLength bits.
func New() *Decaying {
	return &Decaying{bits: bitset.New(wire.BloomFilterLength)}
}

func bitPositions(bfis [wire.BFICount]wire.BFI) [totalHitsExpected]uint {
	var out [totalHitsExpected]uint
	i := 0
	for _, b := range bfis {
		for _, v := range b {
			out[i] = uint(v) % wire.BloomFilterLength
			i++
		}
	}
	return out
}

// Create sets every bit position named by hbfi's six BFIs.
func (d *Decaying) Create(bfis [wire.BFICount]wire.BFI) {
	for _, pos := range bitPositions(bfis) {
		d.bits.Set(pos)
	}
}

// Contains returns the percentage (0-100) of hbfi's bit positions that are
// currently set, used as a probabilistic membership score rather than a
// hard boolean — two unrelated names can share some bit positions, so a
// partial hit is expected and only a high percentage is actionable.
func (d *Decaying) Contains(bfis [wire.BFICount]wire.BFI) uint8 {
	hits := 0
	for _, pos := range bitPositions(bfis) {
		if d.bits.Test(pos) {
			hits++
		}
	}
	return uint8(hits * 100 / totalHitsExpected)
}

// Delete clears every bit position named by hbfi's six BFIs. This is
// best-effort: clearing a bit may also un-set an unrelated name that
// happened to hash to the same position.
func (d *Decaying) Delete(bfis [wire.BFICount]wire.BFI) {
	for _, pos := range bitPositions(bfis) {
		d.bits.Clear(pos)
	}
}

// Decoherence returns the percentage (0-100) of bits set across the whole
// filter, a global saturation measure independent of any one name.
func (d *Decaying) Decoherence() uint8 {
	return uint8(d.bits.Count() * 100 / wire.BloomFilterLength)
}

// PartiallyForget halves the filter's density by clearing a random half of
// its currently set bits, aging out old entries without needing per-bit
// timestamps or a background sweep.
func (d *Decaying) PartiallyForget() {
	set := make([]uint, 0, d.bits.Count())
	for i, ok := d.bits.NextSet(0); ok; i, ok = d.bits.NextSet(i + 1) {
		set = append(set, i)
	}
	if len(set) == 0 {
		return
	}
	rand.Shuffle(len(set), func(i, j int) { set[i], set[j] = set[j], set[i] })
	for _, pos := range set[:len(set)/2] {
		d.bits.Clear(pos)
	}
}
