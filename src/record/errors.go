// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package record

import "errors"

// Sentinel errors for the record package.
var (
	// ErrNotFound is returned when no Block Record exists for an FQDN.
	ErrNotFound = errors.New("record: not found")

	// ErrDuplicateKey is returned by Add when the FQDN is already tracked.
	ErrDuplicateKey = errors.New("record: duplicate key")

	// ErrPersistence is returned when the backing store cannot be
	// loaded or saved.
	ErrPersistence = errors.New("record: persistence failure")

	// ErrInvalidRecord is returned when a record violates its invariants.
	ErrInvalidRecord = errors.New("record: invalid record")

	// ErrUnknownBackend is returned by [Open] for an unsupported backend name.
	ErrUnknownBackend = errors.New("record: unknown store backend")
)
