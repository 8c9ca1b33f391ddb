// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package netkernelconf

import (
	"fmt"

	"github.com/safchain/ethtool"
)

// InterfaceUDPOffloads returns the UDP offload features of iface.
func InterfaceUDPOffloads(iface string) (UDPOffloads, error) {
	e, err := ethtool.NewEthtool()
	if err != nil {
		return UDPOffloads{}, fmt.Errorf("failed to init ethtool: %w", err)
	}
	defer e.Close()
	features, err := e.Features(iface)
	if err != nil {
		return UDPOffloads{}, fmt.Errorf("failed to retrieve %s features: %w", iface, err)
	}
	return udpOffloadsFromFeatures(features), nil
}

// CheckUDPGSO checks whether iface is configured so that UDP GSO sends can
// succeed. It returns a non-nil warn in the case that they are expected to
// fail. It returns a non-nil err in the case that an error is encountered
// while performing the check.
func CheckUDPGSO(iface string) (warn, err error) {
	o, err := InterfaceUDPOffloads(iface)
	if err != nil {
		return nil, fmt.Errorf("couldn't check UDP GSO configuration, %w", err)
	}
	return gsoWarning(iface, o), nil
}
