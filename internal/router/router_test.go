package router

import (
	"testing"

	"github.com/paradigmlink/copernica/internal/contentstore"
	"github.com/paradigmlink/copernica/internal/identity"
	"github.com/paradigmlink/copernica/internal/packet"
	"github.com/paradigmlink/copernica/internal/wire"
)

const deepSix = wire.LinkID(0)

func mustHBFI(t *testing.T, seedByte byte, arg string) (wire.HBFI, *identity.PrivateIdentity) {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = seedByte
	}
	pi, err := identity.NewPrivateIdentity(seed)
	if err != nil {
		t.Fatal(err)
	}
	h, err := wire.NewHBFI(nil, pi.PublicID(), "app", "m0d", "fun", arg)
	if err != nil {
		t.Fatal(err)
	}
	return h, pi
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	store, err := contentstore.New(16)
	if err != nil {
		t.Fatal(err)
	}
	return New(store, deepSix)
}

func TestRequestForwardsToOtherFaces(t *testing.T) {
	r := newTestRouter(t)
	linkA, linkB, linkC := wire.LinkID(1), wire.LinkID(2), wire.LinkID(3)
	r.AddFace(linkA)
	r.AddFace(linkB)
	r.AddFace(linkC)

	hbfi, _ := mustHBFI(t, 0x60, "one")

	var forwardedTo []wire.LinkID
	cached, err := r.HandleRequest(linkA, hbfi, func(link wire.LinkID) {
		forwardedTo = append(forwardedTo, link)
	})
	if err != nil {
		t.Fatal(err)
	}
	if cached != nil {
		t.Fatal("expected no cache hit on first request")
	}
	if len(forwardedTo) == 0 {
		t.Fatal("expected request to be forwarded to at least one other face")
	}
	for _, link := range forwardedTo {
		if link == linkA {
			t.Fatal("request should never be forwarded back to the face it arrived on")
		}
	}
}

func TestResponseCachesAndForwardsToPending(t *testing.T) {
	r := newTestRouter(t)
	requester, responder := wire.LinkID(1), wire.LinkID(2)
	r.AddFace(requester)
	r.AddFace(responder)

	hbfi, pi := mustHBFI(t, 0x61, "two")

	if _, err := r.HandleRequest(requester, hbfi, func(wire.LinkID) {}); err != nil {
		t.Fatal(err)
	}

	resp, err := packet.Response(pi, hbfi, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	var forwardedTo []wire.LinkID
	if err := r.HandleResponse(responder, hbfi, resp, func(link wire.LinkID) {
		forwardedTo = append(forwardedTo, link)
	}); err != nil {
		t.Fatal(err)
	}

	if !r.store.Contains(hbfi) {
		t.Fatal("expected response to be cached")
	}

	found := false
	for _, link := range forwardedTo {
		if link == requester {
			found = true
		}
	}
	if !found {
		t.Fatal("expected response to be forwarded back to the pending requester face")
	}

	cached, err := r.HandleRequest(requester, hbfi, func(wire.LinkID) {})
	if err != nil {
		t.Fatal(err)
	}
	if cached == nil {
		t.Fatal("expected a repeat request to hit the content store")
	}
}

func TestResponseDroppedWithoutForwardedMark(t *testing.T) {
	r := newTestRouter(t)
	link := wire.LinkID(1)
	r.AddFace(link)

	hbfi, pi := mustHBFI(t, 0x62, "three")
	resp, err := packet.Response(pi, hbfi, []byte("unexpected"))
	if err != nil {
		t.Fatal(err)
	}

	if err := r.HandleResponse(link, hbfi, resp, func(wire.LinkID) {
		t.Fatal("should not forward a response with no forwarded-request state")
	}); err != nil {
		t.Fatal(err)
	}
	if r.store.Contains(hbfi) {
		t.Fatal("unsolicited response should not be cached")
	}
}
