// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux || darwin || freebsd

package sockopts

import (
	"golang.org/x/sys/unix"
	"qudp.dev/types/nettype"
)

// SetRecvECN asks the kernel to report the TOS byte (IPv4) or traffic class
// (IPv6) of every received datagram, from which the ECN codepoint is taken.
//
// As with [SetRecvTTL], an IPv6 socket also gets the IPv4 option on a best
// effort basis.
func SetRecvECN(pconn nettype.PacketConn, ipv6Socket bool) error {
	return control(pconn, func(fd int) error {
		if ipv6Socket {
			_ = unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_RECVTOS, 1)
			return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_RECVTCLASS, 1)
		}
		return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_RECVTOS, 1)
	})
}
