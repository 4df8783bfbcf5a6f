// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"time"

	"github.com/charmbracelet/log"
)

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithTick sets how often the periodic loop looks for due watches.
// The default is 10 seconds.
func WithTick(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithResolveTimeout bounds each call to the resolver.
// The default is 15 seconds.
func WithResolveTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.resolveTimeout = d
		}
	}
}

// WithGatewayTimeout bounds each call to the enforcement gateway.
// The default is 15 seconds.
func WithGatewayTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gatewayTimeout = d
		}
	}
}

// WithConcurrency sets how many FQDNs are reconciled at once during a
// tick, a refresh or hydration. The default is 8.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger. Passing nil is a no-op.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors created by [NewMetrics].
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock replaces the time source. Passing nil is a no-op.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}
