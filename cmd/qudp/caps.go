// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"log"
	"net/netip"
	"os"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"
	"qudp.dev/net/batching"
	"qudp.dev/net/netkernelconf"
)

var capsArgs struct {
	bind  netip.AddrPort
	iface string
}

func newCapsCmd() *ffcli.Command {
	fs := newFlagSet("caps")
	fs.TextVar(&capsArgs.bind, "bind", netip.MustParseAddrPort("127.0.0.1:0"), "address to probe a socket on")
	fs.StringVar(&capsArgs.iface, "iface", "", "if non-empty, also report the UDP offload features of this network interface (Linux only)")
	return &ffcli.Command{
		Name:       "caps",
		ShortUsage: "qudp caps [flags]",
		ShortHelp:  "Print the offload and reporting capabilities of a socket",
		FlagSet:    fs,
		Exec:       runCaps,
	}
}

func runCaps(ctx context.Context, args []string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	logKnobs()
	c, err := batching.New(ctx, capsArgs.bind, batching.WithLogf(log.Printf))
	if err != nil {
		return err
	}
	defer c.Close()
	laddr, err := c.LocalAddr()
	if err != nil {
		return err
	}

	caps := c.Capabilities()
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "socket\t%v\n", laddr)
	fmt.Fprintf(tw, "adapter\t%v\n", caps.Adapter)
	fmt.Fprintf(tw, "gso\t%v\n", caps.GSO)
	fmt.Fprintf(tw, "gro\t%v\n", caps.GRO)
	fmt.Fprintf(tw, "ecn\t%v\n", caps.ECN)
	fmt.Fprintf(tw, "ttl\t%v\n", caps.TTL)
	fmt.Fprintf(tw, "max segments\t%d\n", caps.MaxSegments)
	if capsArgs.iface != "" {
		o, err := netkernelconf.InterfaceUDPOffloads(capsArgs.iface)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%v\n", capsArgs.iface, o)
		if warn, err := netkernelconf.CheckUDPGSO(capsArgs.iface); err != nil {
			return err
		} else if warn != nil {
			log.Printf("warning: %v", warn)
		}
	}
	return tw.Flush()
}
