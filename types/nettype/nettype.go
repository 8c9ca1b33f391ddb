// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package nettype defines an interface that doesn't exist in the Go net package.
package nettype

import (
	"context"
	"net"
	"net/netip"
)

// PacketListener defines the ListenPacket method as implemented
// by net.ListenConfig and net.ListenPacket.
type PacketListener interface {
	ListenPacket(ctx context.Context, network, address string) (net.PacketConn, error)
}

// Std implements PacketListener using the Go net package's ListenPacket func.
type Std struct{}

func (Std) ListenPacket(ctx context.Context, network, address string) (net.PacketConn, error) {
	var conf net.ListenConfig
	return conf.ListenPacket(ctx, network, address)
}

// PacketConn is a net.PacketConn that can also write to a netip.AddrPort
// without allocating a net.Addr, as *net.UDPConn does.
type PacketConn interface {
	net.PacketConn
	WriteToUDPAddrPort([]byte, netip.AddrPort) (int, error)
}

// UDPNetwork returns the ListenPacket network for binding addr: "udp4" for
// IPv4 addresses (including IPv4-mapped IPv6 ones) and "udp6" otherwise.
// The unspecified IPv6 address gets "udp", which yields a dual-stack socket.
func UDPNetwork(addr netip.AddrPort) string {
	a := addr.Addr()
	switch {
	case a.Unmap().Is4():
		return "udp4"
	case a == netip.IPv6Unspecified():
		return "udp"
	default:
		return "udp6"
	}
}
