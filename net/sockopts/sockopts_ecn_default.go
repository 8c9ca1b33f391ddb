// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux && !darwin && !freebsd

package sockopts

import (
	"qudp.dev/types/nettype"
)

// SetRecvECN always returns ErrUnsupported on this platform.
func SetRecvECN(nettype.PacketConn, bool) error {
	return ErrUnsupported
}
