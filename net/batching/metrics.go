// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package batching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "qudp"
	metricsSubsystem = "batching"
)

var (
	metricSendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "send_calls_total",
		Help:      "Send syscalls issued, by path: gso for segmented sends, single for one datagram per call.",
	}, []string{"path"})
	metricSendCallsGSO    = metricSendCalls.WithLabelValues("gso")
	metricSendCallsSingle = metricSendCalls.WithLabelValues("single")

	metricPacketsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "packets_sent_total",
		Help:      "Datagrams accepted by the kernel.",
	})
	metricPacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "packets_received_total",
		Help:      "Datagrams returned to callers, after splitting coalesced buffers.",
	})
	metricGROSplits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "gro_splits_total",
		Help:      "Coalesced receive buffers split into several datagrams.",
	})
	metricGSODisabled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "gso_disabled_total",
		Help:      "Controllers that turned off UDP GSO after a send error.",
	})
	metricDecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "cmsg_errors_total",
		Help:      "Received control messages that were malformed or truncated by the kernel.",
	}, []string{"reason"})
	metricDecodeMalformed = metricDecodeErrors.WithLabelValues("malformed")
	metricDecodeTruncated = metricDecodeErrors.WithLabelValues("truncated")

	metricSegmentsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "segments_dropped_total",
		Help:      "Coalesced segments dropped because they exceeded the receiver's capacity.",
	})
)
