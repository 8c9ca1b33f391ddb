// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// The qudp command sends and receives UDP datagrams through a batching
// controller. It is a driver for checking UDP GSO, GRO, ECN and TTL handling
// on a host.
//
// Every flag may also be set from the environment as QUDP_<FLAG>, with
// dashes as underscores, e.g. QUDP_MSG_SIZE=1400.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"qudp.dev/envknob"
	"qudp.dev/types/logger"
)

const envPrefix = "QUDP"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ParseAndRun(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *ffcli.Command {
	subcommands := []*ffcli.Command{
		newReceiveCmd(),
		newSendCmd(),
		newLoopbackCmd(),
		newCapsCmd(),
		newVersionCmd(),
	}
	// ffcli parses each subcommand with its own options.
	for _, c := range subcommands {
		c.Options = append(c.Options, ff.WithEnvVarPrefix(envPrefix))
	}
	return &ffcli.Command{
		Name:        "qudp",
		ShortUsage:  "qudp <receive|send|loopback|caps|version> [flags]",
		ShortHelp:   "Batched UDP I/O driver",
		FlagSet:     newFlagSet("qudp"),
		Options:     []ff.Option{ff.WithEnvVarPrefix(envPrefix)},
		Subcommands: subcommands,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %q", args)
	}
	return nil
}

// serveMetrics serves Prometheus metrics on addr in g until ctx is done. A
// server failure cancels ctx through cancel.
func serveMetrics(ctx context.Context, cancel context.CancelFunc, g *taskgroup.Group, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          logger.StdLogger(logger.WithPrefix(log.Printf, "metrics: ")),
	}
	context.AfterFunc(ctx, func() { srv.Close() })
	g.Go(func() error {
		log.Printf("serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel()
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
}

func logKnobs() {
	envknob.LogCurrent(log.Printf)
}

func formatBitrate(bps float64) (n float64, unit string) {
	const (
		Kbps = 1000
		Mbps = 1000 * Kbps
		Gbps = 1000 * Mbps
	)

	switch {
	case bps >= 0.9*Gbps:
		return bps / Gbps, "Gbps"
	case bps >= 0.9*Mbps:
		return bps / Mbps, "Mbps"
	case bps >= 0.9*Kbps:
		return bps / Kbps, "Kbps"
	default:
		return bps, "bps"
	}
}
