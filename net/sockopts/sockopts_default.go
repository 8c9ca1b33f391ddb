// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux

package sockopts

import (
	"qudp.dev/types/nettype"
)

// SetBufferSize sets pconn's buffer to size for direction. size may be silently
// capped depending on platform.
//
// errForce is only relevant for Linux, and will always be nil otherwise,
// but we maintain a consistent cross-platform API.
//
// If pconn is not a [*net.UDPConn], then SetBufferSize is no-op.
func SetBufferSize(pconn nettype.PacketConn, direction BufferDirection, size int) (errForce error, errPortable error) {
	return nil, portableSetBufferSize(pconn, direction, size)
}

// CheckUDPGSO always returns ErrUnsupported on this platform.
func CheckUDPGSO(nettype.PacketConn) error {
	return ErrUnsupported
}

// SetUDPGRO always returns ErrUnsupported on this platform.
func SetUDPGRO(nettype.PacketConn, bool) error {
	return ErrUnsupported
}
