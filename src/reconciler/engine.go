// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/enforcer"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/resolver"
)

// Default configuration values.
const (
	defaultTick           = 10 * time.Second
	defaultResolveTimeout = 15 * time.Second
	defaultGatewayTimeout = 15 * time.Second
	defaultConcurrency    = 8
)

// Watch is a snapshot of one scheduled FQDN.
type Watch struct {
	FQDN     string
	Interval time.Duration
	NextRun  time.Time
}

type watch struct {
	interval time.Duration
	nextRun  time.Time
}

// Engine keeps the packet filter in line with DNS for every blocked
// FQDN. It owns the watch schedule and drives the resolver, the gateway
// and the record store through the reconciliation primitive.
type Engine struct {
	store    record.Store
	resolver resolver.Resolver
	gateway  enforcer.Gateway

	tick           time.Duration
	resolveTimeout time.Duration
	gatewayTimeout time.Duration
	concurrency    int
	logger         *log.Logger
	metrics        *Metrics
	clock          Clock

	// mu guards watches. No I/O happens while it is held.
	mu      sync.Mutex
	watches map[string]*watch

	// stateMu guards the lifecycle fields below.
	stateMu     sync.Mutex
	initialized bool
	running     bool
	stop        chan struct{}
	done        chan struct{}

	flight singleflight.Group
}

// New creates a stopped [Engine].
func New(store record.Store, res resolver.Resolver, gw enforcer.Gateway, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		resolver:       res,
		gateway:        gw,
		tick:           defaultTick,
		resolveTimeout: defaultResolveTimeout,
		gatewayTimeout: defaultGatewayTimeout,
		concurrency:    defaultConcurrency,
		clock:          systemClock{},
		watches:        make(map[string]*watch),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	return e
}

// Initialize prepares the engine without starting the loop. Calling it
// more than once has no further effect.
func (e *Engine) Initialize() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.initialized {
		return
	}
	e.initialized = true
	e.logger.Debug("engine initialized", "tick", e.tick, "concurrency", e.concurrency)
}

// Start launches the periodic loop. It is a no-op while running.
func (e *Engine) Start() {
	e.Initialize()

	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.loop(e.stop, e.done)
	e.logger.Info("scheduler started", "tick", e.tick, "watches", e.WatchCount())
}

// Stop signals the loop to exit and waits until it has. A tick already
// in progress finishes first. It is a no-op while stopped.
func (e *Engine) Stop() {
	e.stateMu.Lock()
	if !e.running {
		e.stateMu.Unlock()
		return
	}
	close(e.stop)
	done := e.done
	e.running = false
	e.stateMu.Unlock()

	<-done
	e.logger.Info("scheduler stopped")
}

// IsRunning reports whether the periodic loop is active.
func (e *Engine) IsRunning() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.running
}

func (e *Engine) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Reconciliations are bounded by their own timeouts and are
			// never cut short by Stop.
			e.RunDue(context.Background())
		}
	}
}

// AddWatch schedules fqdn to be reconciled every interval, first at
// now + interval. An existing watch has its interval replaced and its
// deadline reset.
func (e *Engine) AddWatch(fqdn string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	e.mu.Lock()
	e.watches[fqdn] = &watch{interval: interval, nextRun: e.clock.Now().Add(interval)}
	n := len(e.watches)
	e.mu.Unlock()

	e.metrics.setWatches(n)
	e.logger.Debug("watch added", "fqdn", fqdn, "interval", interval)
	return nil
}

// RemoveWatch unschedules fqdn and reports whether a watch existed.
func (e *Engine) RemoveWatch(fqdn string) bool {
	e.mu.Lock()
	_, ok := e.watches[fqdn]
	delete(e.watches, fqdn)
	n := len(e.watches)
	e.mu.Unlock()

	e.metrics.setWatches(n)
	if ok {
		e.logger.Debug("watch removed", "fqdn", fqdn)
	}
	return ok
}

// Watch returns the schedule of fqdn.
func (e *Engine) Watch(fqdn string) (Watch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.watches[fqdn]
	if !ok {
		return Watch{}, fmt.Errorf("%w: %s", ErrWatchNotFound, fqdn)
	}
	return Watch{FQDN: fqdn, Interval: w.interval, NextRun: w.nextRun}, nil
}

// Watches returns every scheduled watch ordered by FQDN.
func (e *Engine) Watches() []Watch {
	e.mu.Lock()
	out := make([]Watch, 0, len(e.watches))
	for fqdn, w := range e.watches {
		out = append(out, Watch{FQDN: fqdn, Interval: w.interval, NextRun: w.nextRun})
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b Watch) int { return strings.Compare(a.FQDN, b.FQDN) })
	return out
}

// WatchCount returns the number of scheduled watches.
func (e *Engine) WatchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.watches)
}

// RunDue reconciles every watch whose deadline has passed and
// reschedules each one to now + interval. It returns the number of
// FQDNs processed. The periodic loop calls it on every tick.
//
// A late watch runs once; missed deadlines are not replayed.
func (e *Engine) RunDue(ctx context.Context) int {
	now := e.clock.Now()

	e.mu.Lock()
	due := make(map[string]time.Time)
	for fqdn, w := range e.watches {
		if !now.Before(w.nextRun) {
			due[fqdn] = w.nextRun
		}
	}
	e.mu.Unlock()

	if len(due) == 0 {
		return 0
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, fqdn := range slices.Sorted(maps.Keys(due)) {
		observed := due[fqdn]
		g.Go(func() error {
			outcome, err := e.Reconcile(ctx, fqdn)
			e.logResult(fqdn, outcome, err)
			e.reschedule(fqdn, observed)
			return nil
		})
	}
	_ = g.Wait()

	return len(due)
}

// reschedule moves the deadline of fqdn forward unless the watch was
// removed or replaced while it was being reconciled.
func (e *Engine) reschedule(fqdn string, observed time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.watches[fqdn]
	if !ok || !w.nextRun.Equal(observed) {
		return
	}
	w.nextRun = e.clock.Now().Add(w.interval)
}

func (e *Engine) logResult(fqdn string, outcome Outcome, err error) {
	switch {
	case err != nil:
		e.logger.Warn("reconciliation failed", "fqdn", fqdn, "err", err)
	case outcome == OutcomeUpdated:
		e.logger.Info("address set updated", "fqdn", fqdn)
	default:
		e.logger.Debug("no drift", "fqdn", fqdn)
	}
}
