// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"qudp.dev/net/cmsg"
	"qudp.dev/net/neterror"
)

const (
	// maxIPv4Payload is the largest UDP payload an IPv4 datagram can carry.
	maxIPv4Payload = 1<<16 - 1 - 20 - 8
	// maxIPv6Payload is the largest UDP payload a non-jumbo IPv6 datagram
	// can carry.
	maxIPv6Payload = 1<<16 - 1 - 8
)

// sendOOBSize fits the segment, TTL and ECN records of one send.
const sendOOBSize = 64

// sendBufPool holds scratch buffers that segmented sends coalesce into.
var sendBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, maxIPv6Payload)
		return &b
	},
}

// Send sends each of bufs as one datagram to hdr.Dst, marked with hdr.TTL and
// hdr.ECN when set. It returns the number of leading bufs the kernel
// accepted.
//
// When hdr.GSO is set, the controller's GSO switch is on and there is more
// than one buf, consecutive bufs are coalesced and handed to the kernel
// segmentation offload in as few calls as possible. hdr.SegSize must then
// be the size of every buf except possibly a shorter last one of a run;
// bufs larger than hdr.SegSize are sent on their own. Otherwise every buf
// takes one syscall.
//
// If the kernel rejects a segmented send as too large, GSO is turned off
// for the controller and the rest of bufs, starting with the rejected run,
// are resent one per call. If that fails without any buf accepted, the
// error is a [neterror.ErrUDPGSODisabled].
//
// An error after at least one buf was accepted is not reported: Send
// returns the count and a nil error, and the caller resubmits the rest.
// An error is returned only when nothing was sent. Cancelling ctx
// interrupts a Send waiting for the socket to become writable.
func (c *Controller) Send(ctx context.Context, bufs [][]byte, hdr PacketHeader) (int, error) {
	if len(bufs) == 0 {
		return 0, nil
	}
	if !hdr.Dst.IsValid() {
		return 0, fmt.Errorf("%w: destination %v", ErrInvalidAddress, hdr.Dst)
	}
	segmented := hdr.GSO && len(bufs) > 1 && c.gso.Load()
	if segmented && hdr.SegSize == 0 {
		return 0, ErrZeroSegmentSize
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	stop := interruptOnDone(ctx, c.conn.SetWriteDeadline)
	defer stop()

	dst := hdr.Dst
	is6 := !dst.Addr().Unmap().Is4()
	ctl := cmsg.Control{TTL: hdr.TTL, ECN: hdr.ECN}

	var (
		n   int
		err error
	)
	if segmented {
		n, err = c.sendSegmented(bufs, dst, ctl, int(hdr.SegSize), is6)
	} else {
		n, err = c.sendEach(bufs, dst, ctl, is6)
	}
	metricPacketsSent.Add(float64(n))
	if err == nil {
		return n, nil
	}
	if neterror.IsEPERM(err) {
		c.warnf("send to %v denied by a local firewall rule: %v", dst, err)
	}
	if n > 0 {
		c.warnf("send to %v stopped after %d of %d datagrams: %v", dst, n, len(bufs), err)
		return n, nil
	}
	return 0, ctxError(ctx, err)
}

// sendEach sends every buf in its own syscall.
func (c *Controller) sendEach(bufs [][]byte, dst netip.AddrPort, ctl cmsg.Control, is6 bool) (sent int, err error) {
	var oobArr [sendOOBSize]byte
	oob := cmsg.Append(oobArr[:0], ctl, is6)
	for _, b := range bufs {
		_, _, err := c.conn.WriteMsgUDPAddrPort(b, oob, dst)
		metricSendCallsSingle.Add(1)
		if err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// sendSegmented sends bufs in runs coalesced by nextChunk, one syscall per
// run.
func (c *Controller) sendSegmented(bufs [][]byte, dst netip.AddrPort, ctl cmsg.Control, segSize int, is6 bool) (sent int, err error) {
	maxPayload := maxIPv4Payload
	if is6 {
		maxPayload = maxIPv6Payload
	}
	bp := sendBufPool.Get().(*[]byte)
	defer sendBufPool.Put(bp)

	var oobArr [sendOOBSize]byte
	for sent < len(bufs) {
		n, size := nextChunk(bufs[sent:], segSize, c.caps.MaxSegments, maxPayload)
		if n == 1 {
			// A lone datagram needs no segmentation record.
			k, err := c.sendEach(bufs[sent:sent+1], dst, ctl, is6)
			sent += k
			if err != nil {
				return sent, err
			}
			continue
		}

		b := (*bp)[:size]
		off := 0
		for _, buf := range bufs[sent : sent+n] {
			off += copy(b[off:], buf)
		}
		gctl := ctl
		gctl.SegmentSize = uint16(segSize)
		oob := cmsg.Append(oobArr[:0], gctl, is6)
		_, _, err := c.conn.WriteMsgUDPAddrPort(b, oob, dst)
		metricSendCallsGSO.Add(1)
		if err == nil {
			sent += n
			continue
		}
		if !neterror.ShouldDisableUDPGSO(err) {
			return sent, err
		}
		c.disableGSO(err)
		k, rerr := c.sendEach(bufs[sent:], dst, ctl, is6)
		sent += k
		if rerr != nil {
			return sent, neterror.ErrUDPGSODisabled{OnLaddr: c.laddr.String(), RetryErr: rerr}
		}
		return sent, nil
	}
	return sent, nil
}

// nextChunk returns how many leading bufs can be coalesced into a single
// segmented send of segSize segments, and their total size.
//
// A run holds at most maxSegments bufs and maxPayload bytes. Every buf but
// the last is exactly segSize long; a shorter buf ends the run. A buf longer
// than segSize, or an empty one, is a run of its own. The first buf is
// always taken, so n >= 1 for non-empty bufs.
func nextChunk(bufs [][]byte, segSize, maxSegments, maxPayload int) (n, size int) {
	for _, b := range bufs {
		l := len(b)
		if n > 0 && (n >= maxSegments || l > segSize || l == 0 || size+l > maxPayload) {
			break
		}
		n++
		size += l
		if l != segSize {
			break
		}
	}
	return n, size
}
