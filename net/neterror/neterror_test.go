// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package neterror

import (
	"errors"
	"net"
	"os"
	"syscall"
	"testing"
)

func sendErr(errno syscall.Errno) error {
	return &net.OpError{
		Op: "write",
		Err: &os.SyscallError{
			Syscall: "sendmsg",
			Err:     errno,
		},
	}
}

func TestIsEPERM(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"non-nil", errors.New("foo"), false},
		{"eperm", syscall.EPERM, true},
		{"operror", sendErr(syscall.EPERM), true},
		{"host_unreach", sendErr(syscall.EHOSTUNREACH), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEPERM(tt.err); got != tt.want {
				t.Errorf("got = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestShouldDisableUDPGSO(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"other", errors.New("foo"), false},
		{"emsgsize", sendErr(syscall.EMSGSIZE), true},
		{"econnrefused", sendErr(syscall.ECONNREFUSED), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldDisableUDPGSO(tt.err); got != tt.want {
				t.Errorf("got = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestErrUDPGSODisabledUnwrap(t *testing.T) {
	retry := sendErr(syscall.ENETUNREACH)
	var err error = ErrUDPGSODisabled{OnLaddr: "127.0.0.1:1", RetryErr: retry}
	if !errors.Is(err, syscall.ENETUNREACH) {
		t.Errorf("errors.Is(%v, ENETUNREACH) = false", err)
	}
	var gsoErr ErrUDPGSODisabled
	if !errors.As(err, &gsoErr) || gsoErr.OnLaddr != "127.0.0.1:1" {
		t.Errorf("errors.As failed: %#v", gsoErr)
	}
}
