// Package packet implements the on-wire packet codec: response data
// framing, the narrow-waist request/response envelope, link-level framing,
// and the internal (link_id, link_packet) pairing routers pass between
// workers.
package packet

import "errors"

// Sentinel errors. Every codec or crypto failure is fatal for the packet it
// touches; callers at the link/router boundary are expected to log and
// drop rather than propagate these upstream.
var (
	ErrPayloadTooLarge      = errors.New("packet: payload exceeds DataSize")
	ErrMalformedResponse    = errors.New("packet: malformed response data block")
	ErrAlreadyResponse      = errors.New("packet: narrow waist is already a response")
	ErrNotAResponse         = errors.New("packet: operation requires a response narrow waist")
	ErrAlreadyCyphertext    = errors.New("packet: response data is already ciphertext")
	ErrNotCleartext         = errors.New("packet: encrypt_for requires a cleartext response")
	ErrResponsePIDMismatch  = errors.New("packet: signing identity does not match hbfi.response_pid")
	ErrRequestPIDPresent    = errors.New("packet: response() requires an hbfi with no request_pid")
	ErrSignatureInvalid     = errors.New("packet: signature verification failed")
	ErrMalformedLinkPacket  = errors.New("packet: malformed link packet bytes")
	ErrMalformedNarrowWaist = errors.New("packet: malformed narrow waist packet bytes")
	ErrUnknownReplyTo       = errors.New("packet: unrecognized reply_to encoding")
	ErrLinkPacketTooLarge   = errors.New("packet: link packet exceeds MTU bound")
)
