// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"net/netip"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/peterbourgon/ff/v3/ffcli"
	"qudp.dev/net/batching"
	"qudp.dev/types/ecn"
	"qudp.dev/types/logger"
)

var loopbackArgs struct {
	msgSize     int
	msgCount    int
	batch       int
	gso         bool
	ipv6        bool
	linger      time.Duration
	metricsAddr string
}

func newLoopbackCmd() *ffcli.Command {
	fs := newFlagSet("loopback")
	fs.IntVar(&loopbackArgs.msgSize, "msg-size", 1200, "size of each datagram")
	fs.IntVar(&loopbackArgs.msgCount, "msg-count", 64*1024, "number of datagrams to send")
	fs.IntVar(&loopbackArgs.batch, "batch", 64, "datagrams per Send call")
	fs.BoolVar(&loopbackArgs.gso, "gso", true, "request UDP segmentation offload")
	fs.BoolVar(&loopbackArgs.ipv6, "6", false, "use ::1 instead of 127.0.0.1")
	fs.DurationVar(&loopbackArgs.linger, "linger", time.Second, "how long to keep receiving after the last send")
	fs.StringVar(&loopbackArgs.metricsAddr, "metrics-addr", "", "if non-empty, serve Prometheus metrics on this address")
	return &ffcli.Command{
		Name:       "loopback",
		ShortUsage: "qudp loopback [flags]",
		ShortHelp:  "Send to and receive from two sockets on loopback, verifying every datagram",
		FlagSet:    fs,
		Exec:       runLoopback,
	}
}

func runLoopback(ctx context.Context, args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	logKnobs()
	cfg := loopbackConfig{
		msgSize:  loopbackArgs.msgSize,
		msgCount: loopbackArgs.msgCount,
		batch:    loopbackArgs.batch,
		gso:      loopbackArgs.gso,
		ipv6:     loopbackArgs.ipv6,
		linger:   loopbackArgs.linger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var g taskgroup.Group
	if loopbackArgs.metricsAddr != "" {
		serveMetrics(ctx, cancel, &g, loopbackArgs.metricsAddr)
	}
	var res loopbackResult
	g.Go(func() error {
		defer cancel()
		var err error
		res, err = loopback(ctx, cfg, log.Printf)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("sender:   %v (gso enabled at end: %v)", res.sendCaps, res.gsoEnabled)
	log.Printf("receiver: %v", res.recvCaps)
	rate, unit := formatBitrate(float64(res.bytes) * 8 / res.elapsed.Seconds())
	log.Printf("sent %d, received %d (%d coalesced), lost %d; first ttl %d, ecn %v; %.2f %s over %v",
		res.sent, res.received, res.coalesced, res.sent-res.received, res.ttl, res.ecn, rate, unit, res.elapsed.Round(time.Millisecond))
	return nil
}

type loopbackConfig struct {
	msgSize  int
	msgCount int
	batch    int
	gso      bool
	ipv6     bool
	linger   time.Duration
}

type loopbackResult struct {
	sendCaps   batching.Capabilities
	recvCaps   batching.Capabilities
	gsoEnabled bool

	sent      int
	received  int
	coalesced int // received packets split out of a GRO buffer
	bytes     int
	elapsed   time.Duration

	// Metadata of the first received packet.
	ttl uint8
	ecn ecn.Codepoint
}

// seqHeaderLen is the length of the sequence number that starts every
// loopback payload.
const seqHeaderLen = 8

const (
	loopbackTTL = 64
	loopbackECN = ecn.ECT1
)

// loopback sends cfg.msgCount numbered datagrams from one controller to
// another on the loopback interface while receiving them concurrently.
// It fails on a corrupted or duplicated datagram; losses are only counted.
func loopback(ctx context.Context, cfg loopbackConfig, logf logger.Logf) (res loopbackResult, err error) {
	if cfg.msgSize < seqHeaderLen || cfg.msgSize > 1<<16-1 {
		return res, fmt.Errorf("message size %d out of range [%d, 65535]", cfg.msgSize, seqHeaderLen)
	}
	if cfg.batch < 1 || cfg.msgCount < 0 {
		return res, fmt.Errorf("invalid batch %d or count %d", cfg.batch, cfg.msgCount)
	}
	bind := netip.MustParseAddrPort("127.0.0.1:0")
	if cfg.ipv6 {
		bind = netip.MustParseAddrPort("[::1]:0")
	}

	rc, err := batching.New(ctx, bind, batching.WithLogf(logger.WithPrefix(logf, "recv: ")))
	if err != nil {
		return res, err
	}
	defer rc.Close()
	sc, err := batching.New(ctx, bind, batching.WithLogf(logger.WithPrefix(logf, "send: ")))
	if err != nil {
		return res, err
	}
	defer sc.Close()
	r, err := rc.Receiver()
	if err != nil {
		return res, err
	}
	dst, err := rc.LocalAddr()
	if err != nil {
		return res, err
	}
	res.sendCaps = sc.Capabilities()
	res.recvCaps = rc.Capabilities()

	rctx, rcancel := context.WithCancel(ctx)
	defer rcancel()

	start := time.Now()
	var g taskgroup.Group
	g.Go(func() error {
		defer func() { time.AfterFunc(cfg.linger, rcancel) }()
		hdr := batching.PacketHeader{
			Dst:     dst,
			TTL:     loopbackTTL,
			ECN:     loopbackECN,
			SegSize: uint16(cfg.msgSize),
			GSO:     cfg.gso,
		}
		bufs := make([][]byte, cfg.batch)
		for i := range bufs {
			bufs[i] = make([]byte, cfg.msgSize)
		}
		for seq := 0; seq < cfg.msgCount; {
			batch := bufs[:min(len(bufs), cfg.msgCount-seq)]
			for i, b := range batch {
				fillPayload(b, uint64(seq+i))
			}
			n, err := sendAll(ctx, sc, batch, hdr)
			res.sent += n
			if err != nil {
				return fmt.Errorf("send after %d datagrams: %w", res.sent, err)
			}
			seq += n
		}
		return nil
	})
	g.Go(func() error {
		seen := make([]bool, cfg.msgCount)
		for res.received < cfg.msgCount {
			n, err := r.Recv(rctx)
			if err != nil {
				if rctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("recv after %d datagrams: %w", res.received, err)
			}
			hdrs := r.Headers()
			if res.received == 0 {
				res.ttl, res.ecn = hdrs[0].TTL, hdrs[0].ECN
			}
			for i, p := range r.Packets()[:n] {
				seq, err := checkPayload(p, cfg.msgSize)
				if err != nil {
					return err
				}
				if seq >= uint64(len(seen)) || seen[seq] {
					return fmt.Errorf("duplicate or unexpected datagram %d", seq)
				}
				seen[seq] = true
				res.received++
				res.bytes += len(p)
				if hdrs[i].GSO {
					res.coalesced++
				}
			}
		}
		return nil
	})
	err = g.Wait()
	res.elapsed = time.Since(start)
	res.gsoEnabled = sc.GSOEnabled()
	if err == nil && res.received > 0 && res.recvCaps.ECN && !res.ecn.IsSet() {
		logf("receiver reports ECN but the first datagram carried no codepoint")
	}
	return res, err
}

// fillPayload writes seq into the start of b and a pattern derived from it
// into the rest.
func fillPayload(b []byte, seq uint64) {
	binary.BigEndian.PutUint64(b, seq)
	for i := seqHeaderLen; i < len(b); i++ {
		b[i] = byte(seq) + byte(i)
	}
}

// checkPayload verifies a payload written by fillPayload and returns its
// sequence number.
func checkPayload(b []byte, size int) (uint64, error) {
	if len(b) != size {
		return 0, fmt.Errorf("datagram of %d bytes, want %d", len(b), size)
	}
	seq := binary.BigEndian.Uint64(b)
	for i := seqHeaderLen; i < len(b); i++ {
		if b[i] != byte(seq)+byte(i) {
			return seq, fmt.Errorf("datagram %d corrupted at byte %d", seq, i)
		}
	}
	return seq, nil
}
