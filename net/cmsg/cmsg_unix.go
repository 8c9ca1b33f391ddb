// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux || darwin || freebsd

package cmsg

import (
	"encoding/binary"
	"fmt"
	"slices"
	"unsafe"

	"golang.org/x/sys/unix"
	"qudp.dev/types/ecn"
)

// recordKind identifies which Control field a record populates.
type recordKind int

const (
	kindUnknown recordKind = iota
	kindTTL
	kindTOS
	kindSegment
)

func parseControl(oob []byte) (c Control, err error) {
	for len(oob) > 0 {
		if len(oob) < unix.SizeofCmsghdr {
			return c, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(oob))
		}
		hdr, data, rest, err := unix.ParseOneSocketControlMessage(oob)
		if err != nil {
			return c, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		oob = rest

		kind := classify(hdr.Level, hdr.Type)
		if kind == kindUnknown {
			continue
		}
		v, ok := readValue(data)
		if !ok {
			return c, fmt.Errorf("%w: level %d type %d has %d data bytes", ErrMalformed, hdr.Level, hdr.Type, len(data))
		}
		switch kind {
		case kindTTL:
			c.TTL = uint8(v)
		case kindTOS:
			c.ECN = ecn.FromTOS(byte(v))
		case kindSegment:
			c.SegmentSize = uint16(v)
		}
	}
	return c, nil
}

// readValue reads the integer payload of a record. Kernels deliver these as
// a single byte (IP_TOS on Linux, IP_RECVTTL on BSDs), a uint16 (UDP_SEGMENT)
// or a native int.
func readValue(data []byte) (uint32, bool) {
	switch {
	case len(data) >= 4:
		return binary.NativeEndian.Uint32(data), true
	case len(data) == 2:
		return uint32(binary.NativeEndian.Uint16(data)), true
	case len(data) == 1:
		return uint32(data[0]), true
	}
	return 0, false
}

// appendRecord appends one control message record to b.
func appendRecord(b []byte, level, typ int32, data []byte) []byte {
	start := len(b)
	space := unix.CmsgSpace(len(data))
	b = slices.Grow(b, space)[:start+space]
	clear(b[start:])
	hdr := (*unix.Cmsghdr)(unsafe.Pointer(&b[start]))
	hdr.Level = level
	hdr.Type = typ
	hdr.SetLen(unix.CmsgLen(len(data)))
	copy(b[start+unix.CmsgLen(0):], data)
	return b
}

func appendInt(b []byte, level, typ int32, v int) []byte {
	var data [4]byte
	binary.NativeEndian.PutUint32(data[:], uint32(v))
	return appendRecord(b, level, typ, data[:])
}

func appendUint16(b []byte, level, typ int32, v uint16) []byte {
	var data [2]byte
	binary.NativeEndian.PutUint16(data[:], v)
	return appendRecord(b, level, typ, data[:])
}
