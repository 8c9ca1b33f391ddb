// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build darwin || freebsd

package cmsg

import (
	"golang.org/x/sys/unix"
)

const supportsSegmentation = false

func space() int {
	return 4*unix.CmsgSpace(4) + unix.CmsgSpace(unix.SizeofInet6Pktinfo)
}

func classify(level, typ int32) recordKind {
	switch level {
	case unix.IPPROTO_IP:
		switch typ {
		case unix.IP_RECVTTL, unix.IP_TTL:
			return kindTTL
		case unix.IP_RECVTOS, unix.IP_TOS:
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

// appendControl never emits an IPv4 TTL record: the BSDs only accept a
// per-packet TTL through the IPv6 ancillary API.
func appendControl(b []byte, c Control, ipv6 bool) []byte {
	if ipv6 {
		if c.TTL > 0 {
			b = appendInt(b, unix.IPPROTO_IPV6, unix.IPV6_HOPLIMIT, int(c.TTL))
		}
		if bits, ok := c.ECN.Bits(); ok {
			b = appendInt(b, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, int(bits))
		}
		return b
	}
	if bits, ok := c.ECN.Bits(); ok {
		b = appendInt(b, unix.IPPROTO_IP, unix.IP_TOS, int(bits))
	}
	return b
}
