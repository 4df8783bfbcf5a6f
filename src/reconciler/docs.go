// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package reconciler keeps enforcement in line with DNS.
//
// An [Engine] owns an in-memory schedule of watches, one per blocked
// FQDN. A single background loop wakes on a fixed tick, picks the
// watches whose deadline has passed and runs the reconciliation
// primitive ([Engine.Reconcile]) for each: resolve the name, compare
// the answer with the stored address set, and on drift update the
// gateway first and the record store second. The same primitive backs
// the manual refresh ([Engine.RefreshAll]) and the boot pass
// ([Engine.Hydrate]).
//
// [Engine.Block] and [Engine.Remove] create and tear down the full
// binding for an FQDN (address set, rule, record and watch).
//
// Quick start:
//
//	eng := reconciler.New(store, resolver.New(), enforcer.NewMemory(""),
//	    reconciler.WithTick(10*time.Second),
//	)
//	eng.Initialize()
//	if _, err := eng.Hydrate(ctx); err != nil {
//	    return err
//	}
//	eng.Start()
//	defer eng.Stop()
package reconciler
