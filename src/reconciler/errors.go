// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import "errors"

// Sentinel errors for the reconciler package. Failures of the record
// store and the gateway are wrapped, so the underlying record.Err* and
// enforcer.Err* values stay reachable through [errors.Is].
var (
	// ErrWatchNotFound is returned when an FQDN has no scheduled watch.
	ErrWatchNotFound = errors.New("reconciler: watch not found")

	// ErrResolutionFailure is returned when the resolver yields no addresses.
	ErrResolutionFailure = errors.New("reconciler: resolution failed")

	// ErrEnforcementFailure is returned when the gateway rejects an operation.
	ErrEnforcementFailure = errors.New("reconciler: enforcement failed")

	// ErrPersistenceFailure is returned when the record store cannot load or save.
	ErrPersistenceFailure = errors.New("reconciler: persistence failed")

	// ErrInvalidInterval is returned for a refresh interval that is not
	// positive or does not fit in a [time.Duration].
	ErrInvalidInterval = errors.New("reconciler: invalid interval")

	// ErrInternalPanic is returned when a panic is recovered during reconciliation.
	ErrInternalPanic = errors.New("reconciler: internal panic recovered")
)
