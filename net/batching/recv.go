// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"context"
	"net/netip"

	"qudp.dev/net/cmsg"
	"qudp.dev/net/neterror"
)

// maxRecvBufferSize fits the largest UDP datagram, or the largest buffer
// the kernel coalesces with GRO.
const maxRecvBufferSize = 1<<16 - 1

// Receiver reads datagrams from a [Controller]'s socket into a single
// reusable buffer. It must not be used concurrently.
type Receiver struct {
	c   *Controller
	buf []byte
	oob []byte

	// headers and packets have len Capacity(). Recv writes [0, n) only.
	headers []PacketHeader
	packets [][]byte
	n       int
}

func newReceiver(c *Controller) *Receiver {
	r := &Receiver{
		c:       c,
		buf:     make([]byte, maxRecvBufferSize),
		headers: make([]PacketHeader, c.recvSegments),
		packets: make([][]byte, c.recvSegments),
	}
	if c.caps.reporting() {
		r.oob = make([]byte, cmsg.Space)
	}
	return r
}

// Capacity is the most packets one Recv can return. It is the platform's
// coalescing limit, not the send cap set by [WithMaxSegments].
func (r *Receiver) Capacity() int {
	return len(r.headers)
}

// Headers returns the headers of the packets read by the last Recv.
// The slice is only valid until the next Recv.
func (r *Receiver) Headers() []PacketHeader {
	return r.headers[:r.n]
}

// Packets returns the payloads read by the last Recv, each a view into the
// receive buffer. The slice and its contents are only valid until the next
// Recv.
func (r *Receiver) Packets() [][]byte {
	return r.packets[:r.n]
}

// Recv waits for a datagram and reads it with a single syscall. It returns
// the number of packets now available from Packets and Headers: one, or
// several when the kernel delivered a coalesced (GRO) buffer.
//
// Malformed or truncated control messages do not fail Recv; the packets are
// returned without the metadata that could not be decoded. Cancelling ctx
// interrupts a Recv waiting for data. On error, no packets are available.
func (r *Receiver) Recv(ctx context.Context) (int, error) {
	r.n = 0
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	stop := interruptOnDone(ctx, r.c.conn.SetReadDeadline)
	n, oobn, flags, peer, err := r.c.conn.ReadMsgUDPAddrPort(r.buf, r.oob)
	stop()
	if err != nil && !neterror.PacketWasTruncated(err) {
		return 0, ctxError(ctx, err)
	}
	peer = netip.AddrPortFrom(peer.Addr().Unmap(), peer.Port())

	ctl, err := cmsg.Parse(r.oob[:oobn])
	if err != nil {
		metricDecodeMalformed.Add(1)
		r.c.warnf("control message from %v: %v", peer, err)
	}
	if flags&msgCtrunc != 0 {
		metricDecodeTruncated.Add(1)
		r.c.warnf("control message from %v truncated by the kernel", peer)
	}

	segSize := 0
	if r.c.caps.GRO && ctl.SegmentSize > 0 && int(ctl.SegmentSize) < n {
		segSize = int(ctl.SegmentSize)
	}
	count, dropped := splitSegments(r.packets, r.buf[:n], segSize)
	if dropped > 0 {
		metricSegmentsDropped.Add(float64(dropped))
		r.c.warnf("dropped %d coalesced segments from %v beyond capacity %d", dropped, peer, len(r.packets))
	}
	stride := n
	if segSize > 0 {
		stride = segSize
		metricGROSplits.Add(1)
	}
	for i := range count {
		r.headers[i] = PacketHeader{
			Src:     r.c.laddr,
			Dst:     peer,
			TTL:     ctl.TTL,
			ECN:     ctl.ECN,
			SegSize: uint16(stride),
			GSO:     segSize > 0,
		}
	}
	r.n = count
	metricPacketsReceived.Add(float64(count))
	return count, nil
}

// splitSegments stores src into dst as consecutive segments of segSize
// bytes, the last of which may be shorter. A segSize <= 0 or >= len(src)
// yields src as a single segment. Segments that do not fit in dst are
// dropped.
//
// The segments alias src. Each is capacity-limited so appending to one
// cannot overwrite the next.
func splitSegments(dst [][]byte, src []byte, segSize int) (n, dropped int) {
	if len(dst) == 0 {
		return 0, 1
	}
	if segSize <= 0 || segSize >= len(src) {
		dst[0] = src[:len(src):len(src)]
		return 1, 0
	}
	total := (len(src) + segSize - 1) / segSize
	n = min(total, len(dst))
	for i := range n {
		start := i * segSize
		end := min(start+segSize, len(src))
		dst[i] = src[start:end:end]
	}
	return n, total - n
}
