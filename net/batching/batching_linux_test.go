// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"bytes"
	"context"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"
	"qudp.dev/net/cmsg"
	"qudp.dev/types/ecn"
)

var peerPoison = netip.MustParseAddrPort("192.0.2.1:9")

func parseOOB(t *testing.T, oob []byte) cmsg.Control {
	t.Helper()
	ctl, err := cmsg.Parse(oob)
	if err != nil {
		t.Fatalf("parsing sent control messages: %v", err)
	}
	return ctl
}

func TestSendControlMessages(t *testing.T) {
	fc := newFakeConn()
	c := newTestController(t, fc, Capabilities{GSO: true, MaxSegments: 64})

	// 100, then a lone oversized 150, then a run of two.
	bufs := [][]byte{
		make([]byte, 100),
		make([]byte, 150),
		make([]byte, 100),
		make([]byte, 100),
	}
	hdr := PacketHeader{Dst: testPeer, GSO: true, SegSize: 100, TTL: 64, ECN: ecn.ECT1}
	if n, err := c.Send(context.Background(), bufs, hdr); err != nil || n != 4 {
		t.Fatalf("Send = %d, %v; want 4, nil", n, err)
	}
	var got []cmsg.Control
	for _, w := range fc.writes() {
		got = append(got, parseOOB(t, w.oob))
	}
	plain := cmsg.Control{TTL: 64, ECN: ecn.ECT1}
	segmented := cmsg.Control{TTL: 64, ECN: ecn.ECT1, SegmentSize: 100}
	want := []cmsg.Control{plain, plain, segmented}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("control messages (-want +got):\n%s", diff)
	}
}

func TestSendControlMessagesFamily(t *testing.T) {
	fc := newFakeConn()
	c := newTestController(t, fc, Capabilities{MaxSegments: 1})
	hdr := PacketHeader{TTL: 7, ECN: ecn.CE}

	for _, dst := range []string{"192.0.2.1:443", "[::ffff:192.0.2.1]:443", "[2001:db8::1]:443"} {
		hdr.Dst = netip.MustParseAddrPort(dst)
		if _, err := c.Send(context.Background(), payloads(1, 10), hdr); err != nil {
			t.Fatal(err)
		}
	}
	ws := fc.writes()
	wantLevels := []int32{unix.IPPROTO_IP, unix.IPPROTO_IP, unix.IPPROTO_IPV6}
	for i, w := range ws {
		msgs, err := unix.ParseSocketControlMessage(w.oob)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range msgs {
			if m.Header.Level != wantLevels[i] {
				t.Errorf("write %d to %v: record level %d; want %d", i, w.addr, m.Header.Level, wantLevels[i])
			}
		}
		if ctl := parseOOB(t, w.oob); ctl.TTL != 7 || ctl.ECN != ecn.CE {
			t.Errorf("write %d: control = %+v", i, ctl)
		}
	}
}

func TestRecvSplitsCoalesced(t *testing.T) {
	fc := newFakeConn()
	c := newTestController(t, fc, Capabilities{GRO: true, ECN: true, TTL: true, MaxSegments: 4})
	r, err := c.Receiver()
	if err != nil {
		t.Fatal(err)
	}

	peerA := netip.MustParseAddrPort("127.0.0.1:1001")
	peerB := netip.MustParseAddrPort("127.0.0.1:1002")
	oob := cmsg.Append(nil, cmsg.Control{TTL: 5, ECN: ecn.ECT0, SegmentSize: 10}, false)

	splitsBefore := counterValue(t, metricGROSplits)
	droppedBefore := counterValue(t, metricSegmentsDropped)

	// 5 segments into a capacity of 4: one is dropped.
	fc.reads <- fakeRead{payload: bytes.Repeat([]byte("0123456789"), 5), oob: oob, from: peerA}
	n, err := r.Recv(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("Recv = %d, %v; want 4, nil", n, err)
	}
	for i, h := range r.Headers() {
		want := PacketHeader{Src: testLocal, Dst: peerA, TTL: 5, ECN: ecn.ECT0, SegSize: 10, GSO: true}
		if h != want {
			t.Errorf("header %d = %v; want %v", i, h, want)
		}
	}
	if got := counterValue(t, metricSegmentsDropped) - droppedBefore; got != 1 {
		t.Errorf("dropped segments metric advanced by %v; want 1", got)
	}

	// A shorter coalesced read overwrites only the first slots.
	fc.reads <- fakeRead{payload: []byte("abcdefghijklm"), oob: oob, from: peerB}
	n, err = r.Recv(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("Recv = %d, %v; want 2, nil", n, err)
	}
	var got []string
	for _, p := range r.Packets() {
		got = append(got, string(p))
	}
	if diff := cmp.Diff([]string{"abcdefghij", "klm"}, got); diff != "" {
		t.Errorf("packets (-want +got):\n%s", diff)
	}
	if r.headers[2].Dst != peerA || r.headers[3].Dst != peerA {
		t.Errorf("stale slots rewritten: %v, %v", r.headers[2], r.headers[3])
	}
	if got := counterValue(t, metricGROSplits) - splitsBefore; got != 2 {
		t.Errorf("GRO splits metric advanced by %v; want 2", got)
	}
}

func TestRecvLeavesStaleSlotsUntouched(t *testing.T) {
	fc := newFakeConn()
	c := newTestController(t, fc, Capabilities{GRO: true, MaxSegments: 8})
	r, err := c.Receiver()
	if err != nil {
		t.Fatal(err)
	}

	stale := PacketHeader{Src: peerPoison, Dst: peerPoison, TTL: 99, SegSize: 7, ECN: ecn.CE, GSO: true}
	for i := range r.headers {
		r.headers[i] = stale
		r.packets[i] = []byte("stale")
	}

	oob := cmsg.Append(nil, cmsg.Control{SegmentSize: 4}, false)
	fc.reads <- fakeRead{payload: []byte("aaaabbbbcc"), oob: oob, from: testPeer}
	n, err := r.Recv(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Recv = %d, %v; want 3, nil", n, err)
	}
	if len(r.Headers()) != 3 || len(r.Packets()) != 3 {
		t.Fatalf("views have %d headers, %d packets; want 3", len(r.Headers()), len(r.Packets()))
	}
	want := PacketHeader{Src: testLocal, Dst: testPeer, SegSize: 4, GSO: true}
	for i, h := range r.Headers() {
		if h != want {
			t.Errorf("header %d = %v; want %v", i, h, want)
		}
	}
	for i := n; i < r.Capacity(); i++ {
		if r.headers[i] != stale || string(r.packets[i]) != "stale" {
			t.Errorf("slot %d overwritten: %v %q", i, r.headers[i], r.packets[i])
		}
	}
}

func TestRecvControlProblems(t *testing.T) {
	fc := newFakeConn()
	c := newTestController(t, fc, Capabilities{ECN: true, TTL: true, MaxSegments: 1})
	r, err := c.Receiver()
	if err != nil {
		t.Fatal(err)
	}

	malformedBefore := counterValue(t, metricDecodeMalformed)
	truncatedBefore := counterValue(t, metricDecodeTruncated)

	fc.reads <- fakeRead{payload: []byte("x"), oob: []byte{1, 2, 3}, from: testPeer}
	if n, err := r.Recv(context.Background()); err != nil || n != 1 {
		t.Fatalf("Recv with malformed oob = %d, %v; want 1, nil", n, err)
	}
	if h := r.Headers()[0]; h.TTL != 0 || h.ECN != ecn.Unset {
		t.Errorf("header from malformed oob = %v; want no metadata", h)
	}

	oob := cmsg.Append(nil, cmsg.Control{TTL: 9}, false)
	fc.reads <- fakeRead{payload: []byte("y"), oob: oob, flags: unix.MSG_CTRUNC, from: testPeer}
	if n, err := r.Recv(context.Background()); err != nil || n != 1 {
		t.Fatalf("Recv with MSG_CTRUNC = %d, %v; want 1, nil", n, err)
	}
	if h := r.Headers()[0]; h.TTL != 9 {
		t.Errorf("TTL = %d; want 9 from the records that fit", h.TTL)
	}

	if got := counterValue(t, metricDecodeMalformed) - malformedBefore; got != 1 {
		t.Errorf("malformed metric advanced by %v; want 1", got)
	}
	if got := counterValue(t, metricDecodeTruncated) - truncatedBefore; got != 1 {
		t.Errorf("truncated metric advanced by %v; want 1", got)
	}
}
