// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package record

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS block_records (
	fqdn              TEXT PRIMARY KEY,
	keyword_id        TEXT NOT NULL,
	rule_name         TEXT NOT NULL,
	blocked_at        INTEGER NOT NULL,
	last_resolved_ips TEXT NOT NULL,
	interval_minutes  INTEGER NOT NULL CHECK (interval_minutes > 0)
)`

// SQLiteStore keeps records in an embedded SQLite database. Operations
// still serialize on one process-wide lock so that its contract matches
// [FileStore] exactly.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	audit  *AuditLog
	logger *log.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrPersistence, dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPersistence, path, err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrPersistence, err)
	}

	return &SQLiteStore{
		db:     db,
		audit:  o.audit,
		logger: o.logger,
	}, nil
}

// Add implements [Store]. The record is stored in its [Record.Normalize]
// form.
func (s *SQLiteStore) Add(rec Record) error {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	ips, err := encodeIPs(rec.LastResolvedIPs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistence, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT 1 FROM block_records WHERE fqdn = ?`, rec.FQDN).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.FQDN)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: lookup %s: %v", ErrPersistence, rec.FQDN, err)
	}

	if _, err := tx.Exec(
		`INSERT INTO block_records (fqdn, keyword_id, rule_name, blocked_at, last_resolved_ips, interval_minutes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.FQDN, rec.KeywordID, rec.RuleName, rec.BlockedAt.Unix(), ips, rec.IntervalMinutes,
	); err != nil {
		return fmt.Errorf("%w: insert %s: %v", ErrPersistence, rec.FQDN, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}

	s.audit.Record("added record", rec.FQDN, "ips", len(rec.LastResolvedIPs))
	return nil
}

// Update implements [Store].
func (s *SQLiteStore) Update(fqdn string, ips []string) error {
	encoded, err := encodeIPs(ips)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE block_records SET last_resolved_ips = ? WHERE fqdn = ?`, encoded, fqdn)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrPersistence, fqdn, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrPersistence, fqdn, err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fqdn)
	}

	s.audit.Record("updated record", fqdn, "ips", len(ips))
	return nil
}

// Remove implements [Store].
func (s *SQLiteStore) Remove(fqdn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM block_records WHERE fqdn = ?`, fqdn)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistence, fqdn, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistence, fqdn, err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fqdn)
	}

	s.audit.Record("removed record", fqdn)
	return nil
}

// Get implements [Store].
func (s *SQLiteStore) Get(fqdn string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT fqdn, keyword_id, rule_name, blocked_at, last_resolved_ips, interval_minutes
		 FROM block_records WHERE fqdn = ?`, fqdn)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, fqdn)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: get %s: %v", ErrPersistence, fqdn, err)
	}
	return rec, nil
}

// List implements [Store].
func (s *SQLiteStore) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT fqdn, keyword_id, rule_name, blocked_at, last_resolved_ips, interval_minutes
		 FROM block_records ORDER BY fqdn`)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrPersistence, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	return records, nil
}

// Close implements [Store].
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		blockedAt int64
		ips       string
	)
	if err := row.Scan(&rec.FQDN, &rec.KeywordID, &rec.RuleName, &blockedAt, &ips, &rec.IntervalMinutes); err != nil {
		return Record{}, err
	}
	rec.BlockedAt = time.Unix(blockedAt, 0)
	if err := json.Unmarshal([]byte(ips), &rec.LastResolvedIPs); err != nil {
		return Record{}, err
	}
	return rec.Normalize(), nil
}

func encodeIPs(ips []string) (string, error) {
	if ips == nil {
		ips = []string{}
	}
	data, err := json.Marshal(ips)
	if err != nil {
		return "", fmt.Errorf("%w: encode ips: %v", ErrPersistence, err)
	}
	return string(data), nil
}
