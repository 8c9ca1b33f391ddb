// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux && !darwin && !freebsd

package cmsg

const supportsSegmentation = false

func space() int { return 0 }

func appendControl(b []byte, _ Control, _ bool) []byte { return b }

func parseControl([]byte) (Control, error) { return Control{}, nil }
