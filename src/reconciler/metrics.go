// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reconciles      *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	watches         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fqdnblock_reconcile_total",
				Help: "Reconciliation attempts by outcome",
			},
			[]string{"outcome"},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fqdnblock_resolve_duration_seconds",
				Help:    "Time spent resolving a blocked FQDN",
				Buckets: prometheus.DefBuckets,
			},
		),
		watches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fqdnblock_watches",
				Help: "Number of FQDNs on the refresh schedule",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.reconciles, m.resolveDuration, m.watches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) observeResolve(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
}

func (m *Metrics) setWatches(n int) {
	if m == nil {
		return
	}
	m.watches.Set(float64(n))
}
