// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package sockopts

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
	"qudp.dev/types/nettype"
)

// SetBufferSize sets pconn's buffer to size for direction. It attempts
// (errForce) to set SO_SNDBUFFORCE or SO_RECVBUFFORCE which can overcome the
// limit of net.core.{r,w}mem_max, but require CAP_NET_ADMIN. It falls back to
// the portable implementation (errPortable) if that fails, which may be
// silently capped to net.core.{r,w}mem_max.
//
// If pconn is not a [*net.UDPConn], then SetBufferSize is no-op.
func SetBufferSize(pconn nettype.PacketConn, direction BufferDirection, size int) (errForce error, errPortable error) {
	opt := syscall.SO_RCVBUFFORCE
	if direction == WriteDirection {
		opt = syscall.SO_SNDBUFFORCE
	}
	if c, ok := pconn.(*net.UDPConn); ok {
		var rc syscall.RawConn
		rc, errForce = c.SyscallConn()
		if errForce == nil {
			rc.Control(func(fd uintptr) {
				errForce = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, opt, size)
			})
		}
		if errForce != nil {
			errPortable = portableSetBufferSize(pconn, direction, size)
		}
	}
	return errForce, errPortable
}

// CheckUDPGSO reports whether the kernel knows the UDP_SEGMENT socket option
// (Linux 4.18+). It returns nil if per-call UDP segmentation may be requested
// on pconn.
//
// The option is only read, never set: a socket-wide segment size would apply
// to every send, and we set it per call with a control message instead.
func CheckUDPGSO(pconn nettype.PacketConn) error {
	return control(pconn, func(fd int) error {
		_, err := unix.GetsockoptInt(fd, unix.IPPROTO_UDP, unix.UDP_SEGMENT)
		return err
	})
}

// SetUDPGRO enables or disables UDP generic receive offload (Linux 5.0+).
// Once enabled, a single read may return several coalesced datagrams along
// with a UDP_GRO control message holding the segment size.
func SetUDPGRO(pconn nettype.PacketConn, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return control(pconn, func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_UDP, unix.UDP_GRO, v)
	})
}
