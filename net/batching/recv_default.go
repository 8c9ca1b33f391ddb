// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux && !darwin && !freebsd

package batching

// msgCtrunc is zero where the kernel reports no control message truncation.
const msgCtrunc = 0
