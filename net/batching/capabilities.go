// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"fmt"

	"qudp.dev/envknob"
	"qudp.dev/types/logger"
	"qudp.dev/types/nettype"
)

// AdapterKind names the platform adapter that probed a controller's
// capabilities.
type AdapterKind uint8

const (
	// NoOffload platforms get neither offloads nor metadata reporting.
	NoOffload AdapterKind = iota
	// PartialOffload platforms report ECN and TTL but have no segmentation
	// or coalescing offload.
	PartialOffload
	// FullOffload platforms support UDP GSO, GRO, ECN and TTL reporting.
	FullOffload
)

func (k AdapterKind) String() string {
	switch k {
	case NoOffload:
		return "none"
	case PartialOffload:
		return "partial"
	case FullOffload:
		return "full"
	}
	return fmt.Sprintf("AdapterKind(%d)", uint8(k))
}

// Capabilities is what the kernel was found to support for a socket.
type Capabilities struct {
	GSO bool // segmentation offload on send
	GRO bool // coalescing offload on receive
	ECN bool // ECN codepoint reported on receive
	TTL bool // TTL or hop limit reported on receive
	// MaxSegments is the most segments one segmented send may carry. It is
	// at least 1. The probed value also sizes the receive capacity.
	MaxSegments int
	Adapter     AdapterKind
}

func (c Capabilities) String() string {
	return fmt.Sprintf("adapter=%v gso=%v gro=%v ecn=%v ttl=%v max-segments=%d",
		c.Adapter, c.GSO, c.GRO, c.ECN, c.TTL, c.MaxSegments)
}

// reporting reports whether any received control message is expected.
func (c Capabilities) reporting() bool {
	return c.GRO || c.ECN || c.TTL
}

var (
	disableGSO = envknob.RegisterBool("QUDP_DISABLE_GSO")
	disableGRO = envknob.RegisterBool("QUDP_DISABLE_GRO")
	disableECN = envknob.RegisterBool("QUDP_DISABLE_ECN")
)

// adapter probes the socket options a platform family supports.
type adapter interface {
	kind() AdapterKind
	// maxSegments is the platform's limit on segments per send call.
	maxSegments() int
	checkGSO(nettype.PacketConn) error
	enableGRO(nettype.PacketConn) error
	enableECN(pc nettype.PacketConn, ipv6Socket bool) error
	enableTTL(pc nettype.PacketConn, ipv6Socket bool) error
}

// probe determines pc's capabilities through a. Every step is independent;
// a step that fails clears its flag and is logged once.
func probe(a adapter, pc nettype.PacketConn, ipv6Socket bool, logf logger.Logf) Capabilities {
	caps := Capabilities{
		Adapter:     a.kind(),
		MaxSegments: max(a.maxSegments(), 1),
	}
	if a.kind() == NoOffload {
		return caps
	}

	step := func(name string, disabled bool, enable func() error) bool {
		if disabled {
			logf("%s disabled by environment", name)
			return false
		}
		if err := enable(); err != nil {
			logf("%s unavailable: %v", name, err)
			return false
		}
		return true
	}
	caps.GSO = step("UDP GSO", disableGSO(), func() error { return a.checkGSO(pc) })
	caps.GRO = step("UDP GRO", disableGRO(), func() error { return a.enableGRO(pc) })
	caps.ECN = step("ECN reporting", disableECN(), func() error { return a.enableECN(pc, ipv6Socket) })
	caps.TTL = step("TTL reporting", false, func() error { return a.enableTTL(pc, ipv6Socket) })
	return caps
}
