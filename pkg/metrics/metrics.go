// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metrics

import (
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is prefixed before every metric. If it is changed, it must be done
// before any metrics collector is registered.
const Namespace = "raffle"

// Collector is implemented by components that expose prometheus metrics.
type Collector interface {
	Metrics() []prometheus.Collector
}

// PrometheusCollectorsFromFields returns all exported, initialized fields of
// the struct i that implement prometheus.Collector.
func PrometheusCollectorsFromFields(i interface{}) (cs []prometheus.Collector) {
	v := reflect.Indirect(reflect.ValueOf(i))
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		if u, ok := v.Field(i).Interface().(prometheus.Collector); ok {
			cs = append(cs, u)
		}
	}
	return cs
}

// Register registers the collectors of all given components with r.
func Register(r prometheus.Registerer, cs ...Collector) error {
	for _, c := range cs {
		for _, m := range c.Metrics() {
			if err := r.Register(m); err != nil {
				return err
			}
		}
	}
	return nil
}
