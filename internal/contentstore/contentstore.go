// Package contentstore implements the router's HBFI-keyed response cache:
// an LRU-bounded map from a name to the last Response narrow waist seen for
// it, letting a router satisfy a request it has already seen without
// forwarding it again.
package contentstore

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/wire"
)

// ContentStore is a concurrency-safe, capacity-bounded cache of Response
// narrow waists keyed by their HBFI's wire encoding. Readers may call Get
// from any goroutine; writers are expected to be router workers, one per
// face.
type ContentStore struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, packet.NarrowWaistPacket]
}

// New returns a ContentStore bounded to capacity entries. Capacity must be
// positive.
func New(capacity int) (*ContentStore, error) {
	cache, err := lru.New[string, packet.NarrowWaistPacket](capacity)
	if err != nil {
		return nil, fmt.Errorf("contentstore: new lru: %w", err)
	}
	return &ContentStore{cache: cache}, nil
}

func key(hbfi wire.HBFI) string {
	return string(hbfi.AsBytes())
}

// Put caches nw under hbfi, evicting the least recently used entry if the
// store is at capacity. nw must be a Response; callers that pass a Request
// get ErrNotAResponse from the packet package.
func (cs *ContentStore) Put(hbfi wire.HBFI, nw packet.NarrowWaistPacket) error {
	if nw.Kind != packet.KindResponse {
		return fmt.Errorf("contentstore: %w", packet.ErrNotAResponse)
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.cache.Add(key(hbfi), nw)
	return nil
}

// Get returns the cached Response for hbfi, if any.
func (cs *ContentStore) Get(hbfi wire.HBFI) (packet.NarrowWaistPacket, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cache.Get(key(hbfi))
}

// Contains reports whether hbfi has a cached Response, without affecting
// its recency in the LRU ordering.
func (cs *ContentStore) Contains(hbfi wire.HBFI) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cache.Contains(key(hbfi))
}

// Len returns the number of entries currently cached.
func (cs *ContentStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.cache.Len()
}
