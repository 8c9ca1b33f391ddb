// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package batching implements a UDP socket controller that moves batches of
// datagrams between user buffers and the kernel with as few syscalls as the
// platform allows, using UDP segmentation offload (GSO) on send and
// coalescing offload (GRO) on receive where available, and reporting per
// packet TTL and ECN metadata.
//
// A [Controller] owns one UDP socket. Sends go through [Controller.Send];
// receives go through the single [Receiver] handed out by
// [Controller.Receiver]. Send and receive may proceed concurrently, but
// concurrent Send calls must be serialized by the caller.
package batching

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"qudp.dev/envknob"
	"qudp.dev/net/sockopts"
	"qudp.dev/types/logger"
	"qudp.dev/types/nettype"
)

// defaultSocketBufferSize is the socket buffer size requested for both
// directions unless overridden by [WithBufferSize] or
// QUDP_SOCKET_BUFFER_SIZE.
const defaultSocketBufferSize = 7 << 20

var socketBufferSize = envknob.RegisterInt("QUDP_SOCKET_BUFFER_SIZE")

var (
	// ErrInvalidAddress is wrapped by the errors of [New] and [Controller.Send]
	// when given an invalid address.
	ErrInvalidAddress = errors.New("batching: invalid address")

	// ErrReceiverTaken is returned by [Controller.Receiver] after the first
	// call.
	ErrReceiverTaken = errors.New("batching: receiver already taken")

	// ErrZeroSegmentSize is returned by [Controller.Send] when segmentation
	// offload is requested with a zero SegSize.
	ErrZeroSegmentSize = errors.New("batching: GSO requested with zero segment size")
)

// ConstructionError is returned by [New] when the socket cannot be created or
// bound.
type ConstructionError struct {
	Op   string // "listen" or "bind"
	Addr netip.AddrPort
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("batching: %s %v: %v", e.Op, e.Addr, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// udpConn is the subset of *net.UDPConn used by the controller.
type udpConn interface {
	WriteMsgUDPAddrPort(b, oob []byte, addr netip.AddrPort) (n, oobn int, err error)
	ReadMsgUDPAddrPort(b, oob []byte) (n, oobn, flags int, addr netip.AddrPort, err error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ udpConn = (*net.UDPConn)(nil)

// Controller is a UDP socket with batched, offload-aware I/O.
type Controller struct {
	conn         udpConn
	laddr        netip.AddrPort
	caps         Capabilities
	// recvSegments sizes the Receiver. It is the platform's segment limit
	// even when WithMaxSegments lowered caps.MaxSegments, since the kernel
	// coalesces up to that many datagrams regardless of the send cap.
	recvSegments int
	logf         logger.Logf
	// warnf is logf, rate limited, for per-packet conditions.
	warnf        logger.Logf

	// gso is the live segmentation offload switch. It starts as caps.GSO
	// and is cleared for good when the kernel rejects a segmented send.
	gso atomic.Bool

	closed       atomic.Bool
	receiverOnce sync.Once
	receiver     *Receiver
}

type options struct {
	logf        logger.Logf
	listener    nettype.PacketListener
	bufferSize  int
	maxSegments int
}

// Option configures a [Controller].
type Option func(*options)

// WithLogf sets the logger. The default discards everything.
func WithLogf(logf logger.Logf) Option {
	return func(o *options) { o.logf = logf }
}

// WithListener sets the PacketListener used to create the socket. It must
// return a *net.UDPConn. The default is [nettype.Std].
func WithListener(ln nettype.PacketListener) Option {
	return func(o *options) { o.listener = ln }
}

// WithBufferSize sets the requested send and receive socket buffer size.
// Zero leaves the kernel default in place.
func WithBufferSize(size int) Option {
	return func(o *options) { o.bufferSize = size }
}

// WithMaxSegments caps [Capabilities.MaxSegments] at n, which bounds the
// segments per segmented send. It does not shrink [Receiver.Capacity].
// Values below 1 are ignored.
func WithMaxSegments(n int) Option {
	return func(o *options) { o.maxSegments = n }
}

// New binds a UDP socket to addr, probes the platform's offload and metadata
// reporting capabilities, and returns a Controller owning the socket.
//
// IPv4 addresses (including IPv4-mapped ones) get an IPv4 socket. The IPv6
// unspecified address gets a dual-stack socket.
func New(ctx context.Context, addr netip.AddrPort, opts ...Option) (*Controller, error) {
	if !addr.IsValid() {
		return nil, &ConstructionError{Op: "bind", Addr: addr, Err: ErrInvalidAddress}
	}
	o := options{
		logf:       logger.Discard,
		listener:   nettype.Std{},
		bufferSize: defaultSocketBufferSize,
	}
	if n := socketBufferSize(); n > 0 {
		o.bufferSize = n
	}
	// QUDP_MAX_SEGMENTS is the default send cap; WithMaxSegments wins.
	if n, ok := envknob.LookupInt("QUDP_MAX_SEGMENTS"); ok {
		o.maxSegments = n
	}
	for _, opt := range opts {
		opt(&o)
	}
	logf := logger.WithPrefix(o.logf, "batching: ")

	network := nettype.UDPNetwork(addr)
	if network == "udp4" {
		addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
	}
	pc, err := o.listener.ListenPacket(ctx, network, addr.String())
	if err != nil {
		return nil, &ConstructionError{Op: "listen", Addr: addr, Err: err}
	}
	uc, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, &ConstructionError{Op: "listen", Addr: addr, Err: fmt.Errorf("listener returned %T, want *net.UDPConn", pc)}
	}

	if o.bufferSize > 0 {
		for _, direction := range []sockopts.BufferDirection{sockopts.ReadDirection, sockopts.WriteDirection} {
			errForce, errPortable := sockopts.SetBufferSize(uc, direction, o.bufferSize)
			if errForce != nil {
				logf("failed to force-set UDP %v buffer size to %d: %v; using kernel default values (impacts throughput only)", direction, o.bufferSize, errForce)
			}
			if errPortable != nil {
				logf("failed to set UDP %v buffer size to %d: %v", direction, o.bufferSize, errPortable)
			}
		}
	}

	caps := probe(platformAdapter, uc, network != "udp4", logf)
	recvSegments := caps.MaxSegments
	if o.maxSegments > 0 && o.maxSegments < caps.MaxSegments {
		caps.MaxSegments = o.maxSegments
	}

	c := newController(uc, uc.LocalAddr().(*net.UDPAddr).AddrPort(), caps, logf)
	c.recvSegments = recvSegments
	logf("bound %v: %v", c.laddr, caps)
	return c, nil
}

func newController(conn udpConn, laddr netip.AddrPort, caps Capabilities, logf logger.Logf) *Controller {
	c := &Controller{
		conn:         conn,
		laddr:        netip.AddrPortFrom(laddr.Addr().Unmap(), laddr.Port()),
		caps:         caps,
		recvSegments: caps.MaxSegments,
		logf:         logf,
		warnf:        logger.RateLimitedFn(logf, time.Minute, 2, 100),
	}
	c.gso.Store(caps.GSO)
	return c
}

// LocalAddr returns the address the socket is bound to, or [net.ErrClosed]
// after Close.
func (c *Controller) LocalAddr() (netip.AddrPort, error) {
	if c.closed.Load() {
		return netip.AddrPort{}, net.ErrClosed
	}
	return c.laddr, nil
}

// Capabilities returns the capabilities probed when c was created. It does
// not change over c's lifetime; see [Controller.GSOEnabled] for the live
// segmentation offload state.
func (c *Controller) Capabilities() Capabilities {
	return c.caps
}

// GSOEnabled reports whether Send currently uses segmentation offload. It
// becomes false for good after the kernel rejects a segmented send.
func (c *Controller) GSOEnabled() bool {
	return c.gso.Load()
}

// Receiver returns the controller's receive view. Only one exists per
// controller; later calls return [ErrReceiverTaken].
func (c *Controller) Receiver() (*Receiver, error) {
	if c.closed.Load() {
		return nil, net.ErrClosed
	}
	err := ErrReceiverTaken
	c.receiverOnce.Do(func() {
		c.receiver = newReceiver(c)
		err = nil
	})
	if err != nil {
		return nil, err
	}
	return c.receiver, nil
}

// Close closes the socket. Blocked Send and Recv calls return an error.
func (c *Controller) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return net.ErrClosed
	}
	return c.conn.Close()
}

// disableGSO turns off segmentation offload after the kernel rejected a
// segmented send with err.
func (c *Controller) disableGSO(err error) {
	if c.gso.CompareAndSwap(true, false) {
		metricGSODisabled.Add(1)
		c.logf("disabling UDP GSO on %v after send error: %v", c.laddr, err)
	}
}
