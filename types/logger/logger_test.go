// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"qudp.dev/envknob"
)

func TestFuncWriter(t *testing.T) {
	w := FuncWriter(t.Logf)
	lg := log.New(w, "prefix: ", 0)
	lg.Printf("plumbed through")
}

func TestStdLogger(t *testing.T) {
	lg := StdLogger(t.Logf)
	lg.Printf("plumbed through")
}

func TestRateLimiter(t *testing.T) {
	if debugLogRate() == "all" {
		t.Skip("rate limiting disabled by QUDP_DEBUG_LOG_RATE")
	}
	var (
		want []string
		seen int
	)
	// logf fails the test on any line that isn't the next one in want.
	logf := func(format string, args ...any) {
		got := fmt.Sprintf(format, args...)
		if seen >= len(want) {
			t.Fatalf("Logging continued past end of expected input: %s", got)
		}
		if got != want[seen] {
			t.Fatalf("wanted: %s \n got: %s", want[seen], got)
		}
		seen++
	}

	want = []string{
		"batching: bad control message from 1.2.3.4:0",
		"batching: bad control message from 1.2.3.4:1",
		`[RATE LIMITED] format string "batching: bad control message from %v" (example: "batching: bad control message from 1.2.3.4:2")`,
		"other format 0",
		"other format 1",
		`[RATE LIMITED] format string "other format %d" (example: "other format 2")`,
	}

	lg := RateLimitedFn(logf, time.Hour, 2, 50)
	for i := range 10 {
		lg("batching: bad control message from %v", fmt.Sprintf("1.2.3.4:%d", i))
	}
	for i := range 10 {
		lg("other format %d", i)
	}
	if seen != len(want) {
		t.Errorf("logged %d lines; want %d", seen, len(want))
	}
}

func TestWithPrefix(t *testing.T) {
	var got string
	logf := WithPrefix(func(format string, args ...any) {
		got = fmt.Sprintf(format, args...)
	}, "batching: ")
	logf("probe: %s", "gso")
	if want := "batching: probe: gso"; got != want {
		t.Errorf("got %q; want %q", got, want)
	}
}

func TestRateLimitKnob(t *testing.T) {
	old := os.Getenv("QUDP_DEBUG_LOG_RATE")
	t.Cleanup(func() { envknob.Setenv("QUDP_DEBUG_LOG_RATE", old) })
	envknob.Setenv("QUDP_DEBUG_LOG_RATE", "all")

	var n int
	lg := RateLimitedFn(func(string, ...any) { n++ }, time.Hour, 1, 10)
	for i := range 5 {
		lg("same format %d", i)
	}
	if n != 5 {
		t.Errorf("logged %d lines with rate limiting off; want 5", n)
	}
}
