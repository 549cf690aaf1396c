package wire

import (
	"errors"
	"fmt"

	"github.com/paradigmlink/copernica/internal/identity"
)

// ErrMalformedHBFI is returned when a byte slice doesn't match either of the
// two recognized HBFI encodings.
var ErrMalformedHBFI = errors.New("wire: malformed HBFI bytes")

// HBFI is a Hierarchical Bloom-Filter Index: the composite name under which
// every request and response is routed. Two HBFIs name "the same request
// stream" iff they agree on every field except Frame.
type HBFI struct {
	// RequestPID is the requester's public identity. Its presence/absence
	// selects the ciphertext/cleartext HBFI encoding and, downstream,
	// whether a matching response may be encrypted.
	RequestPID   *identity.PublicIdentity
	ResponsePID  identity.PublicIdentity
	Res, Req     BFI
	App, Mod     BFI
	Fun, Arg     BFI
	Frame        uint64
}

// NewHBFI builds an HBFI for a named resource. requestPID may be nil for an
// anonymous (cleartext-only) request stream.
func NewHBFI(requestPID *identity.PublicIdentity, responsePID identity.PublicIdentity, app, mod, fun, arg string) (HBFI, error) {
	reqBFI, err := requestIdentityBFI(requestPID)
	if err != nil {
		return HBFI{}, err
	}
	res, err := BloomFilterIndex(responsePID.String())
	if err != nil {
		return HBFI{}, err
	}
	appBFI, err := BloomFilterIndex(app)
	if err != nil {
		return HBFI{}, err
	}
	modBFI, err := BloomFilterIndex(mod)
	if err != nil {
		return HBFI{}, err
	}
	funBFI, err := BloomFilterIndex(fun)
	if err != nil {
		return HBFI{}, err
	}
	argBFI, err := BloomFilterIndex(arg)
	if err != nil {
		return HBFI{}, err
	}
	return HBFI{
		RequestPID:  requestPID,
		ResponsePID: responsePID,
		Req:         reqBFI,
		Res:         res,
		App:         appBFI,
		Mod:         modBFI,
		Fun:         funBFI,
		Arg:         argBFI,
	}, nil
}

func requestIdentityBFI(requestPID *identity.PublicIdentity) (BFI, error) {
	if requestPID == nil {
		return BFI{}, nil
	}
	return BloomFilterIndex(requestPID.String())
}

// ToBFIS returns the six BFIs folded into this HBFI, in the order the
// Bayesian classifier trains and classifies against:
// req, res, app, m0d, fun, arg.
func (h HBFI) ToBFIS() [BFICount]BFI {
	return [BFICount]BFI{h.Req, h.Res, h.App, h.Mod, h.Fun, h.Arg}
}

// Offset returns a copy of h addressing a different frame in the same
// request stream.
func (h HBFI) Offset(frame uint64) HBFI {
	h.Frame = frame
	return h
}

// SameStream reports whether h and other name the same request stream,
// ignoring Frame.
func (h HBFI) SameStream(other HBFI) bool {
	if h.Res != other.Res || h.Req != other.Req || h.App != other.App ||
		h.Mod != other.Mod || h.Fun != other.Fun || h.Arg != other.Arg {
		return false
	}
	if (h.RequestPID == nil) != (other.RequestPID == nil) {
		return false
	}
	if h.RequestPID != nil && *h.RequestPID != *other.RequestPID {
		return false
	}
	return h.ResponsePID == other.ResponsePID
}

// EncryptFor returns a copy of h naming requestPID as the requester, used to
// address an encrypted response to a specific requester.
func (h HBFI) EncryptFor(requestPID identity.PublicIdentity) (HBFI, error) {
	out := h
	out.RequestPID = &requestPID
	reqBFI, err := BloomFilterIndex(requestPID.String())
	if err != nil {
		return HBFI{}, err
	}
	out.Req = reqBFI
	return out, nil
}

// CleartextRepr returns a copy of h with the request identity stripped,
// i.e. the form used to address the cleartext (unencrypted-for-anyone) form
// of a response.
func (h HBFI) CleartextRepr() HBFI {
	h.RequestPID = nil
	h.Req = BFI{}
	return h
}

// AsBytes encodes the HBFI using the cleartext or ciphertext layout,
// selected by whether RequestPID is present.
func (h HBFI) AsBytes() []byte {
	buf := make([]byte, 0, CyphertextHBFISize)
	for _, b := range []BFI{h.Res, h.Req, h.App, h.Mod, h.Fun, h.Arg} {
		enc := b.ToBytes()
		buf = append(buf, enc[:]...)
	}
	frm := U64ToU8(h.Frame)
	buf = append(buf, frm[:]...)

	resBytes := h.ResponsePID.Bytes()
	buf = append(buf, resBytes[:]...)
	if h.RequestPID != nil {
		reqBytes := h.RequestPID.Bytes()
		buf = append(buf, reqBytes[:]...)
	}
	return buf
}

// HBFIFromBytes decodes an HBFI, discriminating cleartext vs ciphertext
// encoding by the total byte length.
func HBFIFromBytes(data []byte) (HBFI, error) {
	switch len(data) {
	case CleartextHBFISize, CyphertextHBFISize:
	default:
		return HBFI{}, fmt.Errorf("%w: length %d", ErrMalformedHBFI, len(data))
	}

	var bfis [BFICount]BFI
	off := 0
	for i := 0; i < BFICount; i++ {
		var raw [BFIByteSize]byte
		copy(raw[:], data[off:off+BFIByteSize])
		bfis[i] = BFIFromBytes(raw)
		off += BFIByteSize
	}

	var frameBytes [FrameSize]byte
	copy(frameBytes[:], data[off:off+FrameSize])
	frame := U8ToU64(frameBytes)
	off += FrameSize

	var resBytes [64]byte
	copy(resBytes[:], data[off:off+IdentitySize])
	responsePID := identity.PublicIdentityFromBytes(resBytes)
	off += IdentitySize

	h := HBFI{
		ResponsePID: responsePID,
		Res:         bfis[0],
		Req:         bfis[1],
		App:         bfis[2],
		Mod:         bfis[3],
		Fun:         bfis[4],
		Arg:         bfis[5],
		Frame:       frame,
	}

	if len(data) == CyphertextHBFISize {
		var reqBytes [64]byte
		copy(reqBytes[:], data[off:off+IdentitySize])
		requestPID := identity.PublicIdentityFromBytes(reqBytes)
		h.RequestPID = &requestPID
	}

	return h, nil
}
