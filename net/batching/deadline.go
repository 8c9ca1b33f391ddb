// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"context"
	"errors"
	"os"
	"time"
)

// aLongTimeAgo is a non-zero time in the past, used to make a pending
// socket operation return immediately.
var aLongTimeAgo = time.Unix(1, 0)

// interruptOnDone arranges for setDeadline(aLongTimeAgo) to be called when
// ctx is done, which makes a socket operation parked in the netpoller return
// without having transferred anything. The returned func must be called once
// the operation has returned; it restores the zero deadline if it was
// changed.
func interruptOnDone(ctx context.Context, setDeadline func(time.Time) error) (stop func()) {
	if ctx.Done() == nil {
		return func() {}
	}
	fired := make(chan struct{})
	stopAfter := context.AfterFunc(ctx, func() {
		setDeadline(aLongTimeAgo)
		close(fired)
	})
	return func() {
		if stopAfter() {
			return
		}
		<-fired
		setDeadline(time.Time{})
	}
}

// ctxError returns ctx's error in place of err if err is the deadline error
// caused by interruptOnDone.
func ctxError(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return cerr
	}
	return err
}
