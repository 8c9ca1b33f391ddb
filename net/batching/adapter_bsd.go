// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build darwin || freebsd

package batching

import (
	"qudp.dev/net/sockopts"
	"qudp.dev/types/nettype"
)

var platformAdapter adapter = partialOffload{}

// partialOffload reports ECN and TTL but has no UDP offloads.
type partialOffload struct{}

func (partialOffload) kind() AdapterKind { return PartialOffload }
func (partialOffload) maxSegments() int  { return 1 }

func (partialOffload) checkGSO(nettype.PacketConn) error  { return sockopts.ErrUnsupported }
func (partialOffload) enableGRO(nettype.PacketConn) error { return sockopts.ErrUnsupported }

func (partialOffload) enableECN(pc nettype.PacketConn, ipv6Socket bool) error {
	return sockopts.SetRecvECN(pc, ipv6Socket)
}

func (partialOffload) enableTTL(pc nettype.PacketConn, ipv6Socket bool) error {
	return sockopts.SetRecvTTL(pc, ipv6Socket)
}
