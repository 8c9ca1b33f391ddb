// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package nettype

import (
	"net/netip"
	"testing"
)

func TestUDPNetwork(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:0", "udp4"},
		{"[::ffff:127.0.0.1]:53", "udp4"},
		{"[::1]:0", "udp6"},
		{"[::]:4242", "udp"},
		{"0.0.0.0:0", "udp4"},
	}
	for _, tt := range tests {
		if got := UDPNetwork(netip.MustParseAddrPort(tt.addr)); got != tt.want {
			t.Errorf("UDPNetwork(%s) = %q; want %q", tt.addr, got, tt.want)
		}
	}
}
