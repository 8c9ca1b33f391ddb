// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux || darwin || freebsd

package batching

import "golang.org/x/sys/unix"

const msgCtrunc = unix.MSG_CTRUNC
