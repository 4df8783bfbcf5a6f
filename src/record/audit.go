// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package record

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// auditTimeFormat matches the timestamp layout of the audit trail.
const auditTimeFormat = "2006-01-02 15:04:05"

// AuditLog appends one human-readable line per store mutation to a file.
//
// A nil *AuditLog is valid and discards everything.
type AuditLog struct {
	mu   sync.Mutex
	path string
	diag *log.Logger
}

// NewAuditLog returns an audit log writing to path. Write failures are
// reported on diag and never returned to the caller.
func NewAuditLog(path string, diag *log.Logger) *AuditLog {
	if diag == nil {
		diag = log.New(io.Discard)
	}
	return &AuditLog{
		path: path,
		diag: diag,
	}
}

// Path returns the file the audit log appends to.
func (a *AuditLog) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Record appends an entry for action applied to subject.
func (a *AuditLog) Record(action, subject string, keyvals ...any) {
	if a == nil || a.path == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.diag.Warn("audit log unavailable", "path", a.path, "error", err)
			return
		}
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		a.diag.Warn("audit log unavailable", "path", a.path, "error", err)
		return
	}
	defer f.Close()

	w := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		TimeFormat:      auditTimeFormat,
		Formatter:       log.LogfmtFormatter,
	})
	w.Info(action, append([]any{"fqdn", subject}, keyvals...)...)
}
