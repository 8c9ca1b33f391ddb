// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package cmsg

import (
	"golang.org/x/sys/unix"
)

const supportsSegmentation = true

func space() int {
	// UDP_GRO, IP_TOS, IP_TTL, IPV6_TCLASS and IPV6_HOPLIMIT each carry at
	// most an int. Leave room for one pktinfo record enabled by someone else
	// so that it doesn't push ours into MSG_CTRUNC.
	return 5*unix.CmsgSpace(4) + unix.CmsgSpace(unix.SizeofInet6Pktinfo)
}

func classify(level, typ int32) recordKind {
	switch level {
	case unix.SOL_UDP:
		// UDP_SEGMENT never arrives on receive, but accepting it lets
		// callers decode what Append produced.
		if typ == unix.UDP_GRO || typ == unix.UDP_SEGMENT {
			return kindSegment
		}
	case unix.IPPROTO_IP:
		switch typ {
		case unix.IP_TTL:
			return kindTTL
		case unix.IP_TOS:
			return kindTOS
		}
	case unix.IPPROTO_IPV6:
		switch typ {
		case unix.IPV6_HOPLIMIT:
			return kindTTL
		case unix.IPV6_TCLASS:
			return kindTOS
		}
	}
	return kindUnknown
}

func appendControl(b []byte, c Control, ipv6 bool) []byte {
	if c.SegmentSize > 0 {
		b = appendUint16(b, unix.SOL_UDP, unix.UDP_SEGMENT, c.SegmentSize)
	}
	if ipv6 {
		if c.TTL > 0 {
			b = appendInt(b, unix.IPPROTO_IPV6, unix.IPV6_HOPLIMIT, int(c.TTL))
		}
		if bits, ok := c.ECN.Bits(); ok {
			b = appendInt(b, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, int(bits))
		}
		return b
	}
	if c.TTL > 0 {
		b = appendInt(b, unix.IPPROTO_IP, unix.IP_TTL, int(c.TTL))
	}
	if bits, ok := c.ECN.Bits(); ok {
		b = appendInt(b, unix.IPPROTO_IP, unix.IP_TOS, int(bits))
	}
	return b
}
