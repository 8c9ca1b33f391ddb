// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"bytes"
	"runtime"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"qudp.dev/envknob"
)

// goroutineSettle is how long ResourceCheck waits for goroutines started by
// a test to exit. Cancelled Send and Recv calls stop their deadline
// callbacks asynchronously, so a short grace period is normal.
const goroutineSettle = 3 * time.Second

// ResourceCheck records the number of running goroutines and fails tb at
// cleanup if more remain once the test is over. It catches leaked receive
// loops, deadline callbacks and metrics servers.
//
// Setting QUDP_SKIP_RESOURCE_CHECK=1 turns the check off, for runs under
// tools that keep their own goroutines alive. ResourceCheck panics if
// called from a parallel test.
func ResourceCheck(tb testing.TB) {
	tb.Helper()
	if envknob.Bool("QUDP_SKIP_RESOURCE_CHECK") {
		return
	}

	// tb.Setenv panics in parallel tests, where goroutine counts of other
	// tests would interfere.
	tb.Setenv("QUDP_CHECKING_RESOURCES", "1")

	startN, startStacks := goroutineDump()
	tb.Cleanup(func() {
		if tb.Failed() {
			// Panics are not reported as failures here; see
			// https://github.com/golang/go/issues/49929.
			return
		}
		for deadline := time.Now().Add(goroutineSettle); time.Now().Before(deadline); {
			if runtime.NumGoroutine() <= startN {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		endN, endStacks := goroutineDump()
		if endN <= startN {
			return
		}
		tb.Logf("goroutine diff (-start +end):\n%v", cmp.Diff(string(startStacks), string(endStacks)))
		// Not Fatal, which could hide a panic in progress.
		tb.Errorf("leaked goroutines: %d at start, %d at end", startN, endN)
	})
}

// goroutineDump returns the goroutine count and their grouped stacks.
func goroutineDump() (int, []byte) {
	p := pprof.Lookup("goroutine")
	var b bytes.Buffer
	p.WriteTo(&b, 1)
	return p.Count(), b.Bytes()
}
