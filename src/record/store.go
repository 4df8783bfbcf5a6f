// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package record

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Supported store backends for [Open].
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Store is a durable mapping from FQDN to its [Record].
//
// Every operation holds a single process-wide lock for its whole
// load, mutate and save span, so no reader observes a partial write.
// Cross-process access to the same backing file is not safe.
type Store interface {
	// Add persists rec in its [Record.Normalize] form. It fails with
	// [ErrDuplicateKey] when the FQDN is already present.
	Add(rec Record) error

	// Update replaces the last resolved IP set of fqdn. It fails with
	// [ErrNotFound] when fqdn is absent.
	Update(fqdn string, ips []string) error

	// Remove deletes fqdn. It fails with [ErrNotFound] when absent.
	Remove(fqdn string) error

	// Get returns the record for fqdn or [ErrNotFound].
	Get(fqdn string) (Record, error)

	// List returns every record sorted by FQDN.
	List() ([]Record, error)

	// Close releases the backing resources.
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	audit  *AuditLog
	logger *log.Logger
}

// WithAuditLog attaches an append-only audit log written after every
// successful mutation. Passing nil disables auditing.
func WithAuditLog(a *AuditLog) Option {
	return func(o *options) {
		o.audit = a
	}
}

// WithLogger sets the diagnostic logger. Passing nil is a no-op.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the store implementation named by backend.
func Open(backend, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewFileStore(path, opts...), nil
	case BackendSQLite:
		return NewSQLiteStore(path, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
