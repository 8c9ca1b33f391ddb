// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"testing"
)

func TestReplace(t *testing.T) {
	before := "before"
	done := false
	t.Run("replace", func(t *testing.T) {
		Replace(t, &before, "after")
		if before != "after" {
			t.Errorf("before = %q; want %q", before, "after")
		}
		done = true
	})
	if !done {
		t.Fatal("subtest didn't run")
	}
	if before != "before" {
		t.Errorf("before = %q; want %q", before, "before")
	}
}

func TestLogLineTracker(t *testing.T) {
	const (
		seen   = "sent %d packets"
		unseen = "received %d packets"
	)
	var ml MemLogger
	lt := NewLogLineTracker(ml.Logf, []string{seen, unseen})
	lt.Logf(seen, 3)

	got := lt.Check()
	if len(got) != 1 || got[0] != unseen {
		t.Errorf("Check = %q; want [%q]", got, unseen)
	}
	if want := "sent 3 packets\n"; ml.String() != want {
		t.Errorf("MemLogger = %q; want %q", ml.String(), want)
	}

	lt.Reset()
	if got := lt.Check(); len(got) != 2 {
		t.Errorf("after Reset, Check = %q; want both formats", got)
	}
}

func TestWhileTestRunningLogger(t *testing.T) {
	var logf func(string, ...any)
	t.Run("inner", func(t *testing.T) {
		logf = WhileTestRunningLogger(t)
		logf("visible while running")
	})
	// Must not panic or log to a finished test.
	logf("dropped after the test ended")
}

func TestResourceCheckSkip(t *testing.T) {
	t.Setenv("QUDP_SKIP_RESOURCE_CHECK", "1")
	release := make(chan struct{})
	defer close(release)
	ok := t.Run("leaky", func(t *testing.T) {
		ResourceCheck(t)
		go func() { <-release }()
	})
	if !ok {
		t.Error("leaky subtest failed with the check disabled")
	}
}
