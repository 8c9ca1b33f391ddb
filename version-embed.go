// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package qudproot embeds VERSION.txt into the binary.
package qudproot

import (
	_ "embed"
	"runtime/debug"
	"strings"
)

// VersionDotTxt is the contents of VERSION.txt.
//
//go:embed VERSION.txt
var VersionDotTxt string

// Version returns the release version from VERSION.txt, followed by the VCS
// revision the binary was built from when the build info records one.
func Version() string {
	v := strings.TrimSpace(VersionDotTxt)
	if rev, dirty, ok := vcsRevision(); ok {
		v += "-g" + rev[:min(len(rev), 12)]
		if dirty {
			v += "-dirty"
		}
	}
	return v
}

func vcsRevision() (rev string, dirty, ok bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false, false
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return rev, dirty, rev != ""
}
