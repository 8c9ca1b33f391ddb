// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/netip"

	"github.com/peterbourgon/ff/v3/ffcli"
	"qudp.dev/net/batching"
	"qudp.dev/types/ecn"
)

var sendArgs struct {
	src      netip.AddrPort
	dst      netip.AddrPort
	msgSize  int
	msgCount int
	batch    int
	gso      bool
	ttl      uint
	ecn      ecn.Codepoint
}

func newSendCmd() *ffcli.Command {
	fs := newFlagSet("send")
	fs.TextVar(&sendArgs.src, "src", netip.MustParseAddrPort("127.0.0.1:0"), "address to send from")
	fs.TextVar(&sendArgs.dst, "dst", netip.MustParseAddrPort("127.0.0.1:12345"), "address to send to")
	fs.IntVar(&sendArgs.msgSize, "msg-size", 1200, "size of each datagram")
	fs.IntVar(&sendArgs.msgCount, "msg-count", 64, "number of datagrams to send")
	fs.IntVar(&sendArgs.batch, "batch", 64, "datagrams per Send call")
	fs.BoolVar(&sendArgs.gso, "gso", true, "request UDP segmentation offload")
	fs.UintVar(&sendArgs.ttl, "ttl", 64, "IP TTL or hop limit; 0 for the system default")
	fs.TextVar(&sendArgs.ecn, "ecn", ecn.ECT1, "ECN codepoint: unset, not-ect, ect0, ect1 or ce")
	return &ffcli.Command{
		Name:       "send",
		ShortUsage: "qudp send [flags]",
		ShortHelp:  "Send datagrams in batches",
		FlagSet:    fs,
		Exec:       runSend,
	}
}

func runSend(ctx context.Context, args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	if sendArgs.msgSize < 1 || sendArgs.msgSize > math.MaxUint16 {
		return fmt.Errorf("invalid -msg-size %d", sendArgs.msgSize)
	}
	if sendArgs.batch < 1 {
		return fmt.Errorf("invalid -batch %d", sendArgs.batch)
	}
	if sendArgs.ttl > math.MaxUint8 {
		return fmt.Errorf("invalid -ttl %d", sendArgs.ttl)
	}
	logKnobs()

	c, err := batching.New(ctx, sendArgs.src, batching.WithLogf(log.Printf))
	if err != nil {
		return err
	}
	defer c.Close()

	bufs := make([][]byte, min(sendArgs.batch, max(sendArgs.msgCount, 1)))
	for i := range bufs {
		bufs[i] = make([]byte, sendArgs.msgSize)
		for j := range bufs[i] {
			bufs[i][j] = byte(i + j)
		}
	}
	hdr := batching.PacketHeader{
		Dst:     sendArgs.dst,
		TTL:     uint8(sendArgs.ttl),
		ECN:     sendArgs.ecn,
		SegSize: uint16(sendArgs.msgSize),
		GSO:     sendArgs.gso,
	}

	for remaining := sendArgs.msgCount; remaining > 0; {
		batch := bufs[:min(len(bufs), remaining)]
		n, err := sendAll(ctx, c, batch, hdr)
		if n > 0 {
			log.Printf("sent %d packets, dest %v", n, hdr.Dst)
		}
		if err != nil {
			return err
		}
		remaining -= n
	}
	if sendArgs.gso && !c.GSOEnabled() && c.Capabilities().GSO {
		log.Printf("UDP GSO was disabled during the run")
	}
	return nil
}

// sendAll sends all of bufs, resubmitting whatever a partial Send left over.
func sendAll(ctx context.Context, c *batching.Controller, bufs [][]byte, hdr batching.PacketHeader) (int, error) {
	sent := 0
	for sent < len(bufs) {
		n, err := c.Send(ctx, bufs[sent:], hdr)
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}
