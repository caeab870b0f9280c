// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	DeployedCount     prometheus.Counter
	DeployFailedCount prometheus.Counter
	GasUsed           prometheus.Counter
	ScriptRunCount    prometheus.Counter
	ScriptFailedCount prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "deploy"

	return metrics{
		DeployedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "deployed_count",
			Help:      "Number of deployed contracts.",
		}),
		DeployFailedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "deploy_failed_count",
			Help:      "Number of failed contract deployments.",
		}),
		GasUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "gas_used",
			Help:      "Gas used by contract creation transactions.",
		}),
		ScriptRunCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "script_run_count",
			Help:      "Number of deploy scripts run.",
		}),
		ScriptFailedCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "script_failed_count",
			Help:      "Number of failed deploy scripts.",
		}),
	}
}

func (r *Runner) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(r.metrics)
}
