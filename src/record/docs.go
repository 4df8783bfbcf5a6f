// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package record implements the durable Block Record store.
//
// Two backends are provided behind the [Store] interface:
//
//   - [FileStore]: a JSON array file, rewritten in full on each mutation
//     (load, mutate, save) under a single process-wide lock. Saves go
//     through a temporary file and a rename.
//   - [SQLiteStore]: an embedded SQLite database with the same contract.
//
// Every successful mutation appends a line to the [AuditLog]:
//
//	time="2026-01-02 15:04:05" level=info msg="added record" fqdn=example.com ips=1
//
// Errors are sentinel values for use with [errors.Is]:
//
//	var (
//	    ErrNotFound       // No record for the FQDN
//	    ErrDuplicateKey   // Add of an FQDN that is already tracked
//	    ErrPersistence    // Backing store could not be read or written
//	    ErrInvalidRecord  // Record violates its invariants
//	    ErrUnknownBackend // Open was given an unsupported backend
//	)
package record
