// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/netip"

	"github.com/creachadair/taskgroup"
	"github.com/peterbourgon/ff/v3/ffcli"
	"qudp.dev/net/batching"
)

var receiveArgs struct {
	bind        netip.AddrPort
	metricsAddr string
}

func newReceiveCmd() *ffcli.Command {
	fs := newFlagSet("receive")
	fs.TextVar(&receiveArgs.bind, "bind", netip.MustParseAddrPort("127.0.0.1:12345"), "address to receive on")
	fs.StringVar(&receiveArgs.metricsAddr, "metrics-addr", "", "if non-empty, serve Prometheus metrics on this address")
	return &ffcli.Command{
		Name:       "receive",
		ShortUsage: "qudp receive [flags]",
		ShortHelp:  "Receive datagrams and log each batch",
		FlagSet:    fs,
		Exec:       runReceive,
	}
}

func runReceive(ctx context.Context, args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	logKnobs()
	c, err := batching.New(ctx, receiveArgs.bind, batching.WithLogf(log.Printf))
	if err != nil {
		return err
	}
	defer c.Close()
	r, err := c.Receiver()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var g taskgroup.Group
	if receiveArgs.metricsAddr != "" {
		serveMetrics(ctx, cancel, &g, receiveArgs.metricsAddr)
	}
	g.Go(func() error {
		defer cancel()
		return receiveLoop(ctx, r)
	})
	return g.Wait()
}

// receiveLoop logs every received batch until ctx is done. Receive errors
// are logged and the loop continues.
func receiveLoop(ctx context.Context, r *batching.Receiver) error {
	for {
		n, err := r.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("recv: %v", err)
			continue
		}
		h := r.Headers()[0]
		log.Printf("received %d packets, dst %v, src %v, ttl %d, ecn %v", n, h.Dst, h.Src, h.TTL, h.ECN)
	}
}
