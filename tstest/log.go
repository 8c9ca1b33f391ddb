// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package tstest

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"qudp.dev/types/logger"
)

type testLogWriter struct {
	t testing.TB
}

func (w *testLogWriter) Write(b []byte) (int, error) {
	w.t.Helper()
	w.t.Logf("%s", b)
	return len(b), nil
}

// FixLogs redirects the standard library log package to t.Logf until the
// test ends.
func FixLogs(t testing.TB) {
	log.SetFlags(log.Ltime | log.Lshortfile)
	log.SetOutput(&testLogWriter{t})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
}

// WhileTestRunningLogger returns a logger.Logf that logs to t.Logf until the
// test finishes, at which point it no longer logs anything.
func WhileTestRunningLogger(t testing.TB) logger.Logf {
	var (
		mu   sync.RWMutex
		done bool
	)
	tlogf := logger.WithPrefix(t.Logf, "... ")
	t.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		done = true
	})

	return func(format string, args ...any) {
		mu.RLock()
		defer mu.RUnlock()
		if done {
			return
		}
		tlogf(format, args...)
	}
}

// LogLineTracker is a logger that tracks which log format patterns it's
// seen and can report which expected ones were not seen later.
type LogLineTracker struct {
	logf      logger.Logf
	listenFor []string

	mu   sync.Mutex
	seen map[string]bool // format string => false (if not yet seen but wanted) or true (once seen)
}

// NewLogLineTracker produces a LogLineTracker wrapping a given logf that
// tracks whether expectedFormatStrings were seen.
func NewLogLineTracker(logf logger.Logf, expectedFormatStrings []string) *LogLineTracker {
	ret := &LogLineTracker{
		logf:      logf,
		listenFor: expectedFormatStrings,
		seen:      make(map[string]bool),
	}
	for _, line := range expectedFormatStrings {
		ret.seen[line] = false
	}
	return ret
}

// Logf logs to its underlying logger and also tracks that the given format
// pattern has been seen.
func (lt *LogLineTracker) Logf(format string, args ...any) {
	lt.mu.Lock()
	if v, ok := lt.seen[format]; ok && !v {
		lt.seen[format] = true
	}
	lt.mu.Unlock()
	lt.logf(format, args...)
}

// Check returns which format strings haven't been logged yet.
func (lt *LogLineTracker) Check() []string {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	var notSeen []string
	for _, format := range lt.listenFor {
		if !lt.seen[format] {
			notSeen = append(notSeen, format)
		}
	}
	return notSeen
}

// Reset forgets everything that it's seen.
func (lt *LogLineTracker) Reset() {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, line := range lt.listenFor {
		lt.seen[line] = false
	}
}

// MemLogger is a strings.Builder with a Logf method for tests that want
// to log to a buffer.
type MemLogger struct {
	sync.Mutex
	strings.Builder
}

func (ml *MemLogger) Logf(format string, args ...any) {
	ml.Lock()
	defer ml.Unlock()
	fmt.Fprintf(&ml.Builder, format, args...)
	if !strings.HasSuffix(format, "\n") {
		ml.Builder.WriteByte('\n')
	}
}

func (ml *MemLogger) String() string {
	ml.Lock()
	defer ml.Unlock()
	return ml.Builder.String()
}
