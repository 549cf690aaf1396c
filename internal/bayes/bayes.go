// Package bayes implements the per-router Bayesian link classifier: given
// an incoming name's bloom-filter indices, rank the known outbound links by
// how likely each is to satisfy it, learning from every forward and every
// response that actually arrives.
package bayes

import (
	"math"
	"sort"

	"github.com/paradigmlink/copernica/internal/wire"
)

const (
	// MinProb is returned for a bloom-filter index that is known to the
	// model (trained for some link) but never seen on the link being
	// scored.
	MinProb = 1e-9
	// MinLogProb is the log-space equivalent of MinProb, used directly
	// rather than computed via math.Log so it matches bit-for-bit across
	// independent implementations.
	MinLogProb = -100.0

	// TrainWeight is how much a single forwarding decision reinforces a
	// (link, bfi) pair.
	TrainWeight = 1
	// SuperTrainWeight is how much an actual response arriving reinforces
	// a (link, bfi) pair — four times a plain train, since a confirmed hit
	// is much stronger evidence than a guess.
	SuperTrainWeight = 4
)

// LinkWeight pairs a link with its classification weight.
type LinkWeight struct {
	Link   wire.LinkID
	Weight float64
}

// Bayes is a naive Bayes classifier over bloom-filter indices, scoped to one
// router's set of outbound links.
type Bayes struct {
	linkCounts map[wire.LinkID]int64
	bfiCounts  map[wire.BFI]map[wire.LinkID]int64
}

// New returns an empty classifier.
func New() *Bayes {
	return &Bayes{
		linkCounts: make(map[wire.LinkID]int64),
		bfiCounts:  make(map[wire.BFI]map[wire.LinkID]int64),
	}
}

// AddLink registers link with zero count, so it appears as a classification
// candidate even before it is ever trained.
func (b *Bayes) AddLink(link wire.LinkID) {
	if _, ok := b.linkCounts[link]; !ok {
		b.linkCounts[link] = 0
	}
}

func (b *Bayes) bump(bfis [wire.BFICount]wire.BFI, link wire.LinkID, weight int64) {
	b.linkCounts[link] += weight
	for _, bfi := range bfis {
		m, ok := b.bfiCounts[bfi]
		if !ok {
			m = make(map[wire.LinkID]int64)
			b.bfiCounts[bfi] = m
		}
		m[link] += weight
	}
}

// Train increments (link, bfi) counts by TrainWeight for each of bfis,
// called when a request is forwarded downstream.
func (b *Bayes) Train(bfis [wire.BFICount]wire.BFI, link wire.LinkID) {
	b.bump(bfis, link, TrainWeight)
}

// SuperTrain increments (link, bfi) counts by SuperTrainWeight, called when
// a response actually arrives from link, reinforcing the hit much more
// strongly than a mere forward.
func (b *Bayes) SuperTrain(bfis [wire.BFICount]wire.BFI, link wire.LinkID) {
	b.bump(bfis, link, SuperTrainWeight)
}

func (b *Bayes) total() int64 {
	var total int64
	for _, c := range b.linkCounts {
		total += c
	}
	return total
}

// Prior returns P(link), or false if link is unknown or no training has
// occurred yet.
func (b *Bayes) Prior(link wire.LinkID) (float64, bool) {
	count, ok := b.linkCounts[link]
	total := b.total()
	if !ok || total == 0 {
		return 0, false
	}
	return float64(count) / float64(total), true
}

// LogPrior is the log-space equivalent of Prior.
func (b *Bayes) LogPrior(link wire.LinkID) (float64, bool) {
	count, ok := b.linkCounts[link]
	total := b.total()
	if !ok || total == 0 {
		return 0, false
	}
	return math.Log(float64(count)) - math.Log(float64(total)), true
}

// attrProb returns P(bfi|link) as (value, found). found is false when bfi
// has never been trained for any link at all, or link is unknown (the
// caller should skip it entirely rather than substitute MinProb); a bfi
// known to the model but never seen on link yields MinProb.
func (b *Bayes) attrProb(bfi wire.BFI, link wire.LinkID) (value float64, found bool) {
	links, known := b.bfiCounts[bfi]
	if !known {
		return 0, false
	}
	count, hasLink := b.linkCounts[link]
	if !hasLink {
		return 0, false
	}
	freq, seenOnLink := links[link]
	if !seenOnLink {
		return MinProb, true
	}
	return float64(freq) / float64(count), true
}

func (b *Bayes) attrLogProb(bfi wire.BFI, link wire.LinkID) (value float64, found bool) {
	links, known := b.bfiCounts[bfi]
	if !known {
		return 0, false
	}
	count, hasLink := b.linkCounts[link]
	if !hasLink {
		return 0, false
	}
	freq, seenOnLink := links[link]
	if !seenOnLink {
		return MinLogProb, true
	}
	return math.Log(float64(freq)) - math.Log(float64(count)), true
}

func uniqueBFIS(bfis [wire.BFICount]wire.BFI) []wire.BFI {
	seen := make(map[wire.BFI]bool, wire.BFICount)
	out := make([]wire.BFI, 0, wire.BFICount)
	for _, bfi := range bfis {
		if !seen[bfi] {
			seen[bfi] = true
			out = append(out, bfi)
		}
	}
	return out
}

func knownLinks(m map[wire.LinkID]int64) []wire.LinkID {
	out := make([]wire.LinkID, 0, len(m))
	for link := range m {
		out = append(out, link)
	}
	return out
}

// Classify ranks every known link by the product of P(bfi|link) over bfis
// times P(link), descending. The order of links with equal weights is not
// defined: candidates are gathered from a map and sorted by weight only.
func (b *Bayes) Classify(bfis [wire.BFICount]wire.BFI) []LinkWeight {
	unique := uniqueBFIS(bfis)
	links := knownLinks(b.linkCounts)
	result := make([]LinkWeight, 0, len(links))
	for _, link := range links {
		product := 1.0
		for _, bfi := range unique {
			if p, ok := b.attrProb(bfi, link); ok {
				product *= p
			}
		}
		prior, _ := b.Prior(link)
		result = append(result, LinkWeight{Link: link, Weight: product * prior})
	}
	sortDescending(result)
	return result
}

// LogClassify is the numerically stable, log-space variant of Classify,
// using a per-link log-sum-exp against that link's maximum log-probability
// to avoid underflow when many bfis are scored.
func (b *Bayes) LogClassify(bfis [wire.BFICount]wire.BFI) []LinkWeight {
	unique := uniqueBFIS(bfis)
	links := knownLinks(b.linkCounts)
	result := make([]LinkWeight, 0, len(links))
	for _, link := range links {
		logProbs := make([]float64, 0, len(unique))
		for _, bfi := range unique {
			if p, ok := b.attrLogProb(bfi, link); ok {
				logProbs = append(logProbs, p)
			}
		}
		max := math.Inf(-1)
		for _, p := range logProbs {
			if p > max {
				max = p
			}
		}
		sum := 0.0
		for _, p := range logProbs {
			sum += math.Exp(p - max)
		}
		logPrior, _ := b.LogPrior(link)
		result = append(result, LinkWeight{Link: link, Weight: max + math.Log(sum) + logPrior})
	}
	sortDescending(result)
	return result
}

func sortDescending(lws []LinkWeight) {
	sort.SliceStable(lws, func(i, j int) bool {
		return lws[i].Weight > lws[j].Weight
	})
}
