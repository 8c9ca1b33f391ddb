// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"fmt"
	"net/netip"

	"qudp.dev/types/ecn"
)

// PacketHeader is the metadata of a datagram, or of a batch of datagrams
// sharing it.
//
// On send, one header describes every payload in the batch. On receive,
// every returned packet gets its own header; Src is the controller's bound
// address and Dst is the peer that sent the packet.
type PacketHeader struct {
	Src netip.AddrPort
	Dst netip.AddrPort
	// TTL is the IPv4 TTL or IPv6 hop limit. Zero means not set on send
	// (the system default applies) and not reported on receive.
	TTL uint8
	// ECN is the ECN codepoint. ecn.Unset means not set or not reported.
	ECN ecn.Codepoint
	// SegSize is, on send, the size of every segment of a segmented batch
	// except possibly the last; on receive, the stride at which a coalesced
	// buffer was split.
	SegSize uint16
	// GSO, on send, requests segmentation offload. On receive it reports
	// that the packet was split out of a coalesced buffer.
	GSO bool
}

func (h PacketHeader) String() string {
	return fmt.Sprintf("src=%v dst=%v ttl=%d ecn=%v seg=%d gso=%v", h.Src, h.Dst, h.TTL, h.ECN, h.SegSize, h.GSO)
}
