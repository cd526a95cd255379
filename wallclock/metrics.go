// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026 Datadog, Inc.

package wallclock

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sampleMetrics reports per-iteration sample counts, iteration counts
// and iteration durations to whichever ambient metrics backends were
// configured (statsd, Prometheus, or both), mirroring how gopkg.in/DataDog/dd-trace-go.v1/profiler's
// metrics.go computes and reports its own runtime.MemStats-derived
// points every collection period.
type sampleMetrics struct {
	statsd StatsdClient
	tags   []string

	promSamples    prometheus.Counter
	promIterations prometheus.Counter
	promIterTime   prometheus.Histogram
}

func newSampleMetrics(cfg *config) *sampleMetrics {
	m := &sampleMetrics{statsd: cfg.statsd}
	if cfg.prometheus {
		m.promSamples = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallclock",
			Name:      "samples_total",
			Help:      "Total number of execution samples recorded.",
		})
		m.promIterations = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wallclock",
			Name:      "iterations_total",
			Help:      "Total number of timer loop iterations run.",
		})
		m.promIterTime = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wallclock",
			Name:      "iteration_duration_seconds",
			Help:      "Wall-clock duration of one timer loop iteration.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		})
		prometheus.MustRegister(m.promSamples, m.promIterations, m.promIterTime)
	}
	return m
}

func (m *sampleMetrics) observeIteration(sampled int, dur time.Duration) {
	if m.statsd != nil {
		_ = m.statsd.Count("wallclock.samples", int64(sampled), m.tags, 1)
		_ = m.statsd.Timing("wallclock.iteration", dur, m.tags, 1)
	}
	if m.promSamples != nil {
		m.promSamples.Add(float64(sampled))
		m.promIterations.Inc()
		m.promIterTime.Observe(dur.Seconds())
	}
}

func (m *sampleMetrics) close() {
	if m.promSamples != nil {
		prometheus.Unregister(m.promSamples)
		prometheus.Unregister(m.promIterations)
		prometheus.Unregister(m.promIterTime)
	}
}
