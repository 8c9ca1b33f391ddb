// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package ecn is a leaf package containing the Explicit Congestion
// Notification codepoint type (RFC 3168) shared by the control message
// codec and the batching socket.
package ecn

import "fmt"

// Codepoint is an ECN codepoint as carried in the two low bits of the IPv4
// TOS byte or the IPv6 traffic class.
//
// The zero value, Unset, means the codepoint was not reported by the kernel
// (on receive) or should not be set (on send). It is distinct from NotECT,
// which is an explicit "not ECN-capable" marking.
type Codepoint uint8

const (
	Unset  Codepoint = iota // not reported / leave the socket default
	NotECT                  // 0b00
	ECT1                    // 0b01
	ECT0                    // 0b10
	CE                      // 0b11, congestion experienced
)

// mask selects the ECN bits of a TOS or traffic class byte.
const mask = 0b11

// FromTOS returns the codepoint encoded in the low two bits of an IPv4 TOS
// byte or an IPv6 traffic class byte. It never returns Unset.
func FromTOS(tos byte) Codepoint {
	switch tos & mask {
	case 0b01:
		return ECT1
	case 0b10:
		return ECT0
	case 0b11:
		return CE
	default:
		return NotECT
	}
}

// Bits returns the wire bits for c and whether c carries a value at all.
// Unset and out-of-range values report false.
func (c Codepoint) Bits() (b byte, ok bool) {
	switch c {
	case NotECT:
		return 0b00, true
	case ECT1:
		return 0b01, true
	case ECT0:
		return 0b10, true
	case CE:
		return 0b11, true
	default:
		return 0, false
	}
}

// IsSet reports whether c is a real codepoint rather than Unset.
func (c Codepoint) IsSet() bool {
	_, ok := c.Bits()
	return ok
}

func (c Codepoint) String() string {
	switch c {
	case Unset:
		return "unset"
	case NotECT:
		return "not-ect"
	case ECT1:
		return "ect1"
	case ECT0:
		return "ect0"
	case CE:
		return "ce"
	default:
		return fmt.Sprintf("Codepoint(%d)", uint8(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Codepoint) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts the names
// produced by String as well as the raw two-bit values "0" through "3".
func (c *Codepoint) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "unset":
		*c = Unset
	case "not-ect", "0":
		*c = NotECT
	case "ect1", "1":
		*c = ECT1
	case "ect0", "2":
		*c = ECT0
	case "ce", "3":
		*c = CE
	default:
		return fmt.Errorf("ecn: unknown codepoint %q", b)
	}
	return nil
}
