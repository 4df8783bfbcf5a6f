// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// Result is the outcome of one FQDN within a batch pass.
type Result struct {
	FQDN    string
	Outcome Outcome
	Err     error
}

// OK reports whether the FQDN was reconciled without error.
func (r Result) OK() bool { return r.Err == nil }

// Summary collects the results of a batch pass in record order.
type Summary struct {
	Results   []Result
	Succeeded int
	Failed    int
}

// RefreshAll runs the reconciliation primitive for every stored record.
// One FQDN failing never stops the others. The returned error is only
// set when the record list itself cannot be loaded.
func (e *Engine) RefreshAll(ctx context.Context) (Summary, error) {
	records, err := e.store.List()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}
	return e.reconcileAll(ctx, records), nil
}

// Hydrate is the boot pass: it reconciles every stored record and then
// schedules a watch for each using the record's own interval, whether
// or not its reconciliation succeeded.
func (e *Engine) Hydrate(ctx context.Context) (Summary, error) {
	records, err := e.store.List()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	summary := e.reconcileAll(ctx, records)

	for _, rec := range records {
		if err := e.AddWatch(rec.FQDN, rec.Interval()); err != nil {
			e.logger.Warn("cannot schedule record", "fqdn", rec.FQDN, "err", err)
		}
	}

	e.logger.Info("hydration complete", "records", len(records),
		"succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

func (e *Engine) reconcileAll(ctx context.Context, records []record.Record) Summary {
	results := make([]Result, len(records))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			outcome, err := e.Reconcile(ctx, rec.FQDN)
			e.logResult(rec.FQDN, outcome, err)
			results[i] = Result{FQDN: rec.FQDN, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Results: results}
	for _, r := range results {
		if r.OK() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}
