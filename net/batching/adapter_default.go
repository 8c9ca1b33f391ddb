// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux && !darwin && !freebsd

package batching

import (
	"qudp.dev/net/sockopts"
	"qudp.dev/types/nettype"
)

var platformAdapter adapter = noOffload{}

// noOffload is used where control messages are not supported at all.
type noOffload struct{}

func (noOffload) kind() AdapterKind { return NoOffload }
func (noOffload) maxSegments() int  { return 1 }

func (noOffload) checkGSO(nettype.PacketConn) error        { return sockopts.ErrUnsupported }
func (noOffload) enableGRO(nettype.PacketConn) error       { return sockopts.ErrUnsupported }
func (noOffload) enableECN(nettype.PacketConn, bool) error { return sockopts.ErrUnsupported }
func (noOffload) enableTTL(nettype.PacketConn, bool) error { return sockopts.ErrUnsupported }
