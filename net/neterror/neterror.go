// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package neterror classifies network errors.
package neterror

import (
	"errors"
	"fmt"
	"syscall"
)

var errEPERM error = syscall.EPERM // box it into interface just once

// IsEPERM returns true if the error is or wraps EPERM.
func IsEPERM(err error) bool {
	// Linux and macOS, while not documented in the man page, returns EPERM when
	// there's a rule rejecting matching sendto(2) destinations.
	return errors.Is(err, errEPERM)
}

var packetWasTruncated func(error) bool // non-nil on Windows at least

// PacketWasTruncated reports whether err indicates truncation but the RecvFrom
// that generated err was otherwise successful. On Windows, Go's UDP RecvFrom
// calls WSARecvFrom which returns the WSAEMSGSIZE error code when the received
// datagram is larger than the provided buffer. When that happens, both a valid
// size and an error are returned (as per the partial fix for golang/go#14074).
// If the WSAEMSGSIZE error is returned, then we ignore the error to get
// semantics similar to the POSIX operating systems.
func PacketWasTruncated(err error) bool {
	if packetWasTruncated == nil {
		return false
	}
	return packetWasTruncated(err)
}

var errEMSGSIZE error = syscall.EMSGSIZE

var shouldDisableUDPGSO func(error) bool // non-nil on Linux

// ShouldDisableUDPGSO reports whether err, returned from a send that carried
// a UDP segmentation request, means segmentation offload should be turned
// off for the socket and the datagrams resent one by one.
//
// EMSGSIZE ("message too large") qualifies everywhere. Platforms may add
// their own conditions, e.g. Linux reports EIO when the egress device lacks
// checksum offload.
func ShouldDisableUDPGSO(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errEMSGSIZE) {
		return true
	}
	if shouldDisableUDPGSO == nil {
		return false
	}
	return shouldDisableUDPGSO(err)
}

// ErrUDPGSODisabled is returned when UDP GSO was disabled on a socket as the
// result of a send error, and the unsegmented retry of the same datagrams
// also failed with RetryErr.
type ErrUDPGSODisabled struct {
	OnLaddr  string
	RetryErr error
}

func (e ErrUDPGSODisabled) Error() string {
	return fmt.Sprintf("disabled UDP GSO on %s, NIC(s) may not support checksum offload: %v", e.OnLaddr, e.RetryErr)
}

func (e ErrUDPGSODisabled) Unwrap() error {
	return e.RetryErr
}
