// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux

package netkernelconf

// InterfaceUDPOffloads is not implemented for non-Linux systems.
func InterfaceUDPOffloads(string) (UDPOffloads, error) {
	return UDPOffloads{}, ErrUnsupported
}

// CheckUDPGSO is unimplemented for non-Linux systems. It always returns
// nil, nil.
func CheckUDPGSO(string) (warn, err error) {
	return nil, nil
}
