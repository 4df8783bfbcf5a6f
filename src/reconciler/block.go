// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/enforcer"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/resolver"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/revert"
)

// RuleName returns the name of the rule that blocks fqdn.
func RuleName(fqdn string) string {
	return "Block " + fqdn
}

// Block starts blocking fqdn: it resolves the name, creates an address
// set and an outbound block rule for it, stores the record and
// schedules a watch every intervalMinutes.
//
// A failure at any step undoes the steps already taken, so nothing is
// left behind that no record refers to and no record goes unwatched.
func (e *Engine) Block(ctx context.Context, fqdn string, intervalMinutes int) (record.Record, error) {
	name, err := resolver.Normalize(fqdn)
	if err != nil {
		return record.Record{}, err
	}
	if err := record.ValidateInterval(intervalMinutes); err != nil {
		return record.Record{}, fmt.Errorf("%w: %w", ErrInvalidInterval, err)
	}

	if _, err := e.store.Get(name); err == nil {
		return record.Record{}, fmt.Errorf("%w: %s", record.ErrDuplicateKey, name)
	}

	ips := e.resolve(ctx, name)
	if len(ips) == 0 {
		return record.Record{}, fmt.Errorf("%w: %s", ErrResolutionFailure, name)
	}

	var undo revert.Stack
	rollback := func(cause error) error {
		e.logger.Warn("block failed, rolling back", "fqdn", name, "steps", undo.Len(), "err", cause)
		if rerr := undo.Revert(); rerr != nil {
			e.logger.Warn("rollback incomplete", "fqdn", name, "err", rerr)
		}
		return cause
	}
	// Cleanup must run even when ctx is what failed.
	cleanupCtx := context.WithoutCancel(ctx)

	gctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	id, err := e.gateway.CreateAddressSet(gctx, name, ips)
	cancel()
	if err != nil {
		return record.Record{}, fmt.Errorf("%w: create address set: %w", ErrEnforcementFailure, err)
	}
	undo.Push("address set "+id, func() error {
		return e.gatewayCall(cleanupCtx, func(c context.Context) error {
			return e.gateway.DeleteAddressSet(c, id)
		})
	})

	ruleName := RuleName(name)
	gctx, cancel = context.WithTimeout(ctx, e.gatewayTimeout)
	err = e.gateway.CreateRule(gctx, ruleName, id, enforcer.Outbound, enforcer.Block)
	cancel()
	if err != nil {
		return record.Record{}, rollback(fmt.Errorf("%w: create rule: %w", ErrEnforcementFailure, err))
	}
	undo.Push("rule "+ruleName, func() error {
		return e.gatewayCall(cleanupCtx, func(c context.Context) error {
			return e.gateway.DeleteRule(c, ruleName)
		})
	})

	rec := record.New(name, id, ruleName, ips, intervalMinutes)
	if err := e.store.Add(rec); err != nil {
		if errors.Is(err, record.ErrDuplicateKey) {
			return record.Record{}, rollback(err)
		}
		return record.Record{}, rollback(fmt.Errorf("%w: %w", ErrPersistenceFailure, err))
	}
	undo.Push("record "+name, func() error {
		return e.store.Remove(name)
	})

	if err := e.AddWatch(name, rec.Interval()); err != nil {
		return record.Record{}, rollback(err)
	}

	e.logger.Info("blocked", "fqdn", name, "id", id, "ips", len(ips), "interval", rec.Interval())
	return rec, nil
}

// Remove stops blocking fqdn: it deletes the rule, then the address
// set, then the record, and finally the watch. Gateway failures are
// logged and do not prevent the record from being removed.
func (e *Engine) Remove(ctx context.Context, fqdn string) error {
	name, err := resolver.Normalize(fqdn)
	if err != nil {
		return err
	}

	rec, err := e.store.Get(name)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	if err := e.gatewayCall(ctx, func(c context.Context) error {
		return e.gateway.DeleteRule(c, rec.RuleName)
	}); err != nil {
		e.logger.Warn("failed to delete rule", "fqdn", name, "rule", rec.RuleName, "err", err)
	}

	if err := e.gatewayCall(ctx, func(c context.Context) error {
		return e.gateway.DeleteAddressSet(c, rec.KeywordID)
	}); err != nil {
		e.logger.Warn("failed to delete address set", "fqdn", name, "id", rec.KeywordID, "err", err)
	}

	if err := e.store.Remove(name); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	e.RemoveWatch(name)
	e.logger.Info("unblocked", "fqdn", name)
	return nil
}

// gatewayCall runs fn under the gateway timeout.
func (e *Engine) gatewayCall(ctx context.Context, fn func(context.Context) error) error {
	gctx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	defer cancel()
	return fn(gctx)
}
