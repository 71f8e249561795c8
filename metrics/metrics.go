// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exports the counters kept for Go-implemented objects as
// Prometheus metrics.
package metrics

import (
	"github.com/dblohm7/wingrt/com"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wingrt"

// Collector is a prometheus.Collector reporting com.ReadStats.
type Collector struct {
	objectsCreated *prometheus.Desc
	liveObjects    *prometheus.Desc
	calls          *prometheus.Desc
	failedCalls    *prometheus.Desc
	panics         *prometheus.Desc
}

// NewCollector returns a Collector. Labels in constLabels are attached to
// every metric.
func NewCollector(constLabels prometheus.Labels) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, constLabels)
	}
	return &Collector{
		objectsCreated: desc("objects_created_total", "Go-implemented objects created."),
		liveObjects:    desc("live_objects", "Go-implemented objects whose reference count is above zero."),
		calls:          desc("calls_total", "ABI method calls dispatched into Go, excluding IUnknown."),
		failedCalls:    desc("failed_calls_total", "ABI method calls dispatched into Go that returned a failure code."),
		panics:         desc("panics_total", "Panics recovered at the ABI boundary."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.objectsCreated
	ch <- c.liveObjects
	ch <- c.calls
	ch <- c.failedCalls
	ch <- c.panics
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := com.ReadStats()
	ch <- prometheus.MustNewConstMetric(c.objectsCreated, prometheus.CounterValue, float64(s.ObjectsCreated))
	ch <- prometheus.MustNewConstMetric(c.liveObjects, prometheus.GaugeValue, float64(s.LiveObjects))
	ch <- prometheus.MustNewConstMetric(c.calls, prometheus.CounterValue, float64(s.Calls))
	ch <- prometheus.MustNewConstMetric(c.failedCalls, prometheus.CounterValue, float64(s.FailedCalls))
	ch <- prometheus.MustNewConstMetric(c.panics, prometheus.CounterValue, float64(s.Panics))
}

// Register registers a Collector with reg, or with the default registerer
// when reg is nil.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(NewCollector(nil))
}
