// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/peterbourgon/ff/v3/ffcli"
	qudproot "qudp.dev"
)

func newVersionCmd() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "qudp version",
		ShortHelp:  "Print the qudp version",
		FlagSet:    newFlagSet("version"),
		Exec: func(ctx context.Context, args []string) error {
			if err := noArgs(args); err != nil {
				return err
			}
			fmt.Printf("qudp %s %s/%s %s\n", qudproot.Version(), runtime.GOOS, runtime.GOARCH, runtime.Version())
			return nil
		},
	}
}
