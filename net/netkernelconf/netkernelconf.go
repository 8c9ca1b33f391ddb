// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package netkernelconf contains code for checking kernel and NIC
// configuration related to UDP offloads.
package netkernelconf

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned where NIC features cannot be queried.
var ErrUnsupported = errors.New("netkernelconf: unsupported on this platform")

// ethtool feature names.
const (
	featTxUDPSegmentation  = "tx-udp-segmentation"
	featTxChecksumGeneric  = "tx-checksum-ip-generic"
	featTxChecksumIPv4     = "tx-checksum-ipv4"
	featTxChecksumIPv6     = "tx-checksum-ipv6"
	featRxGROList          = "rx-gro-list"
	featRxUDPGROForwarding = "rx-udp-gro-forwarding"
)

// UDPOffloads are the NIC features that decide how UDP GSO and GRO traffic
// is handled by an interface.
type UDPOffloads struct {
	// TxUDPSegmentation is whether the NIC segments UDP GSO sends itself.
	// Without it the kernel segments in software, which still works.
	TxUDPSegmentation bool
	// TxChecksum is whether the NIC computes transmit checksums. The kernel
	// rejects UDP GSO sends with EIO when it is off.
	TxChecksum bool
	// RxGROList is whether fraglist GRO is on.
	RxGROList bool
	// RxUDPGROForwarding is whether forwarded UDP traffic is coalesced.
	RxUDPGROForwarding bool
}

func (o UDPOffloads) String() string {
	return fmt.Sprintf("%s=%v tx-checksum=%v %s=%v %s=%v",
		featTxUDPSegmentation, o.TxUDPSegmentation, o.TxChecksum,
		featRxGROList, o.RxGROList, featRxUDPGROForwarding, o.RxUDPGROForwarding)
}

func udpOffloadsFromFeatures(features map[string]bool) UDPOffloads {
	return UDPOffloads{
		TxUDPSegmentation:  features[featTxUDPSegmentation],
		TxChecksum:         features[featTxChecksumGeneric] || features[featTxChecksumIPv4] || features[featTxChecksumIPv6],
		RxGROList:          features[featRxGROList],
		RxUDPGROForwarding: features[featRxUDPGROForwarding],
	}
}

// gsoWarning returns a non-nil warning if UDP GSO sends through iface, with
// offloads o, are expected to be rejected by the kernel.
func gsoWarning(iface string, o UDPOffloads) error {
	if !o.TxChecksum {
		return fmt.Errorf("transmit checksum offload is off on %s; UDP GSO sends through it fail with EIO and fall back to one datagram per syscall", iface)
	}
	return nil
}
