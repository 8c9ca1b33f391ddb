// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"qudp.dev/net/sockopts"
	"qudp.dev/types/nettype"
)

// udpMaxSegments is the kernel's UDP_MAX_SEGMENTS.
const udpMaxSegments = 64

var platformAdapter adapter = fullOffload{}

// fullOffload probes UDP_SEGMENT, UDP_GRO and the TOS/TTL receive options.
type fullOffload struct{}

func (fullOffload) kind() AdapterKind { return FullOffload }
func (fullOffload) maxSegments() int  { return udpMaxSegments }

func (fullOffload) checkGSO(pc nettype.PacketConn) error  { return sockopts.CheckUDPGSO(pc) }
func (fullOffload) enableGRO(pc nettype.PacketConn) error { return sockopts.SetUDPGRO(pc, true) }

func (fullOffload) enableECN(pc nettype.PacketConn, ipv6Socket bool) error {
	return sockopts.SetRecvECN(pc, ipv6Socket)
}

func (fullOffload) enableTTL(pc nettype.PacketConn, ipv6Socket bool) error {
	return sockopts.SetRecvTTL(pc, ipv6Socket)
}
