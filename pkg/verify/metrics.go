// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	RequestCount         prometheus.Counter
	SubmittedCount       prometheus.Counter
	VerifiedCount        prometheus.Counter
	AlreadyVerifiedCount prometheus.Counter
	FailedCount          prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "verify"

	return metrics{
		RequestCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "request_count",
			Help:      "Number of requests sent to the explorer API.",
		}),
		SubmittedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "submitted_count",
			Help:      "Number of sources submitted for verification.",
		}),
		VerifiedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "verified_count",
			Help:      "Number of successful verifications.",
		}),
		AlreadyVerifiedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "already_verified_count",
			Help:      "Number of submissions for contracts that were already verified.",
		}),
		FailedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "failed_count",
			Help:      "Number of failed verifications.",
		}),
	}
}

func (s *Service) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}
