// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// Outcome is the result of reconciling one FQDN.
type Outcome int

const (
	// OutcomeFailed means the FQDN was left untouched because a step failed.
	OutcomeFailed Outcome = iota
	// OutcomeUnchanged means DNS still matches the stored address set.
	OutcomeUnchanged
	// OutcomeUpdated means the gateway and the record now hold a new set.
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeUpdated:
		return "updated"
	default:
		return "failed"
	}
}

// IPSetsEqual reports whether a and b hold the same addresses, ignoring
// order and duplicates.
func IPSetsEqual(a, b []string) bool {
	return slices.Equal(normalizeSet(a), normalizeSet(b))
}

// normalizeSet returns a sorted copy of ips without duplicates.
func normalizeSet(ips []string) []string {
	out := slices.Clone(ips)
	slices.Sort(out)
	return slices.Compact(out)
}

// Reconcile brings fqdn's enforcement in line with what it resolves to
// now:
//
//  1. load the record (a missing record aborts),
//  2. resolve the FQDN (no addresses aborts and keeps the old state),
//  3. compare with the stored set and stop if nothing drifted,
//  4. push the new set to the gateway (failure aborts before the store
//     is touched),
//  5. store the new set.
//
// Concurrent calls for the same FQDN share a single execution.
func (e *Engine) Reconcile(ctx context.Context, fqdn string) (Outcome, error) {
	v, err, _ := e.flight.Do(fqdn, func() (any, error) {
		return e.reconcile(ctx, fqdn)
	})
	outcome, _ := v.(Outcome)
	e.metrics.observeOutcome(outcome)
	return outcome, err
}

func (e *Engine) reconcile(ctx context.Context, fqdn string) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("%w: %v", ErrInternalPanic, r)
		}
	}()

	rec, err := e.store.Get(fqdn)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return OutcomeFailed, err
		}
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	ips := e.resolve(ctx, fqdn)
	if len(ips) == 0 {
		return OutcomeFailed, fmt.Errorf("%w: %s", ErrResolutionFailure, fqdn)
	}

	if IPSetsEqual(ips, rec.LastResolvedIPs) {
		return OutcomeUnchanged, nil
	}

	gctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	err = e.gateway.UpdateAddressSet(gctx, rec.KeywordID, ips)
	cancel()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrEnforcementFailure, err)
	}

	// The gateway is ahead of the record from here until Update returns.
	// A failure leaves it that way until the next pass catches up.
	if err := e.store.Update(fqdn, ips); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	e.logger.Info("drift detected", "fqdn", fqdn, "old", len(rec.LastResolvedIPs), "new", len(ips))
	return OutcomeUpdated, nil
}

// resolve calls the resolver under the resolve timeout and returns a
// normalized address set.
func (e *Engine) resolve(ctx context.Context, fqdn string) []string {
	rctx, cancel := context.WithTimeout(ctx, e.resolveTimeout)
	defer cancel()

	start := e.clock.Now()
	ips := e.resolver.Resolve(rctx, fqdn)
	e.metrics.observeResolve(e.clock.Now().Sub(start))

	if len(ips) == 0 {
		return nil
	}
	return normalizeSet(ips)
}
