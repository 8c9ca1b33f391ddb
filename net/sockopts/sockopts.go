// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package sockopts contains logic for applying socket options.
package sockopts

import (
	"errors"
	"net"
	"runtime"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"qudp.dev/types/nettype"
)

// BufferDirection represents either the read/receive or write/send direction
// of a socket buffer.
type BufferDirection string

const (
	ReadDirection  BufferDirection = "read"
	WriteDirection BufferDirection = "write"
)

// ErrUnsupported is returned by option setters that have no implementation
// on the current platform.
var ErrUnsupported = errors.New("sockopts: unsupported on this platform")

var errNotUDPConn = errors.New("sockopts: not a *net.UDPConn")

func portableSetBufferSize(pconn nettype.PacketConn, direction BufferDirection, size int) error {
	if runtime.GOOS == "plan9" {
		// Not supported. Don't try. Avoid logspam.
		return nil
	}
	var err error
	if c, ok := pconn.(*net.UDPConn); ok {
		if direction == WriteDirection {
			err = c.SetWriteBuffer(size)
		} else {
			err = c.SetReadBuffer(size)
		}
	}
	return err
}

// SetRecvTTL asks the kernel to report the IPv4 TTL, and for IPv6 sockets
// also the hop limit, of every received datagram as a control message.
//
// On an IPv6 socket the IPv4 option is attempted as well, for IPv4-mapped
// traffic on a dual-stack socket, but only the IPv6 result is returned.
func SetRecvTTL(pconn nettype.PacketConn, ipv6Socket bool) error {
	if ipv6Socket {
		_ = ipv4.NewPacketConn(pconn).SetControlMessage(ipv4.FlagTTL, true)
		return ipv6.NewPacketConn(pconn).SetControlMessage(ipv6.FlagHopLimit, true)
	}
	return ipv4.NewPacketConn(pconn).SetControlMessage(ipv4.FlagTTL, true)
}

// control runs fn against the file descriptor of pconn, which must be a
// *net.UDPConn.
func control(pconn nettype.PacketConn, fn func(fd int) error) error {
	c, ok := pconn.(*net.UDPConn)
	if !ok {
		return errNotUDPConn
	}
	rc, err := c.SyscallConn()
	if err != nil {
		return err
	}
	return controlRaw(rc, fn)
}

func controlRaw(rc syscall.RawConn, fn func(fd int) error) error {
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = fn(int(fd))
	}); err != nil {
		return err
	}
	return serr
}
