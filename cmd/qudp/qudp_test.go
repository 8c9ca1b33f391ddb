// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/creachadair/taskgroup"
	qt "github.com/frankban/quicktest"
	"qudp.dev/tstest"
	"qudp.dev/types/ecn"
)

func TestLoopback(t *testing.T) {
	for _, gso := range []bool{false, true} {
		cfg := loopbackConfig{
			msgSize:  1000,
			msgCount: 48,
			batch:    16,
			gso:      gso,
			linger:   2 * time.Second,
		}
		res, err := loopback(context.Background(), cfg, tstest.WhileTestRunningLogger(t))
		if err != nil {
			t.Fatalf("gso=%v: %v", gso, err)
		}
		if res.sent != cfg.msgCount || res.received != cfg.msgCount {
			t.Errorf("gso=%v: sent %d, received %d; want %d each", gso, res.sent, res.received, cfg.msgCount)
		}
		if res.bytes != cfg.msgCount*cfg.msgSize {
			t.Errorf("gso=%v: bytes = %d; want %d", gso, res.bytes, cfg.msgCount*cfg.msgSize)
		}
	}
}

func TestLoopbackRejectsBadConfig(t *testing.T) {
	c := qt.New(t)
	_, err := loopback(context.Background(), loopbackConfig{msgSize: 4, msgCount: 1, batch: 1}, t.Logf)
	c.Assert(err, qt.ErrorMatches, `message size 4 out of range.*`)
	_, err = loopback(context.Background(), loopbackConfig{msgSize: 100, msgCount: 1}, t.Logf)
	c.Assert(err, qt.ErrorMatches, `invalid batch 0.*`)
}

func TestPayloadChecks(t *testing.T) {
	c := qt.New(t)
	b := make([]byte, 64)
	fillPayload(b, 1234)

	seq, err := checkPayload(b, 64)
	c.Assert(err, qt.IsNil)
	c.Assert(seq, qt.Equals, uint64(1234))

	_, err = checkPayload(b[:32], 64)
	c.Assert(err, qt.ErrorMatches, `datagram of 32 bytes, want 64`)

	b[40]++
	_, err = checkPayload(b, 64)
	c.Assert(err, qt.ErrorMatches, `datagram 1234 corrupted at byte 40`)
}

func TestFlagsFromEnv(t *testing.T) {
	t.Setenv("QUDP_MSG_SIZE", "900")
	t.Setenv("QUDP_ECN", "ce")
	t.Setenv("QUDP_DST", "192.0.2.7:4242")

	root := newRootCmd()
	if err := root.Parse([]string{"send", "-batch", "8"}); err != nil {
		t.Fatal(err)
	}
	c := qt.New(t)
	c.Assert(sendArgs.msgSize, qt.Equals, 900)
	c.Assert(sendArgs.ecn, qt.Equals, ecn.CE)
	c.Assert(sendArgs.dst, qt.Equals, netip.MustParseAddrPort("192.0.2.7:4242"))
	c.Assert(sendArgs.batch, qt.Equals, 8)
	c.Assert(sendArgs.ttl, qt.Equals, uint(64))
}

func TestFormatBitrate(t *testing.T) {
	tests := []struct {
		bps  float64
		n    float64
		unit string
	}{
		{500, 500, "bps"},
		{2_000, 2, "Kbps"},
		{950_000, 0.95, "Mbps"},
		{3e9, 3, "Gbps"},
	}
	for _, tt := range tests {
		n, unit := formatBitrate(tt.bps)
		if n != tt.n || unit != tt.unit {
			t.Errorf("formatBitrate(%v) = %v %s; want %v %s", tt.bps, n, unit, tt.n, tt.unit)
		}
	}
}

func TestServeMetrics(t *testing.T) {
	tstest.FixLogs(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var g taskgroup.Group
	serveMetrics(ctx, cancel, &g, addr)

	var body string
	for deadline := time.Now().Add(5 * time.Second); ; {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err == nil {
			b, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr != nil {
				t.Fatal(rerr)
			}
			body = string(b)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics server never came up: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(body, "qudp_batching_packets_sent_total") {
		t.Errorf("metrics output lacks qudp_batching_packets_sent_total:\n%s", body)
	}

	cancel()
	if err := g.Wait(); err != nil {
		t.Errorf("serveMetrics: %v", err)
	}
}
