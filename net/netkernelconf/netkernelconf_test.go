// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package netkernelconf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUDPOffloadsFromFeatures(t *testing.T) {
	tests := []struct {
		name     string
		features map[string]bool
		want     UDPOffloads
		wantWarn bool
	}{
		{
			name:     "none",
			features: nil,
			want:     UDPOffloads{},
			wantWarn: true,
		},
		{
			name: "generic-checksum",
			features: map[string]bool{
				"tx-udp-segmentation":    true,
				"tx-checksum-ip-generic": true,
				"rx-udp-gro-forwarding":  true,
			},
			want:     UDPOffloads{TxUDPSegmentation: true, TxChecksum: true, RxUDPGROForwarding: true},
			wantWarn: false,
		},
		{
			name: "per-family-checksum",
			features: map[string]bool{
				"tx-checksum-ipv6": true,
				"rx-gro-list":      true,
			},
			want:     UDPOffloads{TxChecksum: true, RxGROList: true},
			wantWarn: false,
		},
		{
			name: "checksum-off",
			features: map[string]bool{
				"tx-udp-segmentation":    true,
				"tx-checksum-ip-generic": false,
			},
			want:     UDPOffloads{TxUDPSegmentation: true},
			wantWarn: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := udpOffloadsFromFeatures(tt.features)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("offloads mismatch (-want +got):\n%s", diff)
			}
			if warn := gsoWarning("eth0", got); (warn != nil) != tt.wantWarn {
				t.Errorf("gsoWarning = %v; want warning %v", warn, tt.wantWarn)
			}
		})
	}
}
