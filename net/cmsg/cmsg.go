// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package cmsg encodes and decodes the socket control messages (ancillary
// data) attached to UDP sendmsg and recvmsg calls: the UDP segmentation
// size, the IP TTL or hop limit, and the ECN bits of the TOS or traffic
// class byte.
//
// It is the only package that reasons about the platform's control message
// layout. Everything else deals in [Control] values.
package cmsg

import (
	"errors"

	"qudp.dev/types/ecn"
)

// Control is the typed form of the control messages of one sendmsg or
// recvmsg call. Each zero field means "absent".
type Control struct {
	// TTL is the IPv4 TTL or IPv6 hop limit.
	TTL uint8
	// ECN is the codepoint from the TOS or traffic class byte.
	ECN ecn.Codepoint
	// SegmentSize is the UDP_SEGMENT size on send, or the UDP_GRO size of a
	// coalesced receive.
	SegmentSize uint16
}

// IsZero reports whether c carries no fields.
func (c Control) IsZero() bool {
	return c == Control{}
}

// ErrMalformed is wrapped by the errors returned from [Parse] when a control
// message record is truncated or has an impossible length.
var ErrMalformed = errors.New("cmsg: malformed control message")

// Space is the size of a control buffer large enough to receive every record
// enabled by this package on the current platform. It is zero on platforms
// where control messages are not supported.
var Space = space()

// SupportsSegmentation reports whether [Append] can encode a UDP segmentation
// record on this platform.
const SupportsSegmentation = supportsSegmentation

// Append appends the control messages describing c to b and returns the
// extended buffer. ipv6 selects the IPv6 record family for the TTL and ECN
// records and must match the family of the destination address, not of the
// socket; a dual-stack socket sending to an IPv4-mapped address wants the
// IPv4 records.
//
// Records the platform cannot carry are silently omitted.
func Append(b []byte, c Control, ipv6 bool) []byte {
	return appendControl(b, c, ipv6)
}

// Parse decodes the control messages in oob. Records may appear in any order
// and unknown records are skipped. An empty oob yields the zero Control.
//
// If a record is malformed, Parse returns the fields decoded before it along
// with an error wrapping [ErrMalformed]. Callers are expected to keep using
// the partial result.
func Parse(oob []byte) (Control, error) {
	if len(oob) == 0 {
		return Control{}, nil
	}
	return parseControl(oob)
}
