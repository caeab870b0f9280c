// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	SentCount      prometheus.Counter
	SendErrorCount prometheus.Counter
	ResentCount    prometheus.Counter
	RevertedCount  prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "transaction"

	return metrics{
		SentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "sent_count",
			Help:      "Number of transactions sent.",
		}),
		SendErrorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "send_error_count",
			Help:      "Number of transactions that could not be sent.",
		}),
		ResentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "resent_count",
			Help:      "Number of transactions sent again.",
		}),
		RevertedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "reverted_count",
			Help:      "Number of mined transactions that reverted.",
		}),
	}
}

func (t *transactionService) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(t.metrics)
}

type monitorMetrics struct {
	WatchedCount   prometheus.Counter
	ConfirmedCount prometheus.Counter
	CancelledCount prometheus.Counter
	PendingWatches prometheus.Gauge
}

func newMonitorMetrics() monitorMetrics {
	subsystem := "transaction_monitor"

	return monitorMetrics{
		WatchedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "watched_count",
			Help:      "Number of transactions watched.",
		}),
		ConfirmedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "confirmed_count",
			Help:      "Number of watched transactions that were mined.",
		}),
		CancelledCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "cancelled_count",
			Help:      "Number of watched transactions whose nonce was used by another transaction.",
		}),
		PendingWatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "pending_watches",
			Help:      "Number of transactions currently watched.",
		}),
	}
}

func (tm *transactionMonitor) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(tm.metrics)
}
