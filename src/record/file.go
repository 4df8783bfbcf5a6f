// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// FileStore keeps every record in a single JSON array file and rewrites
// the whole file on each mutation.
type FileStore struct {
	mu     sync.Mutex
	path   string
	audit  *AuditLog
	logger *log.Logger
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by the JSON file at path. The file
// is created on the first mutation.
func NewFileStore(path string, opts ...Option) *FileStore {
	o := newOptions(opts)
	return &FileStore{
		path:   path,
		audit:  o.audit,
		logger: o.logger,
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Add implements [Store]. The record is stored in its [Record.Normalize]
// form.
func (s *FileStore) Add(rec Record) error {
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if indexOf(records, rec.FQDN) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, rec.FQDN)
	}

	records = append(records, rec)
	if err := s.save(records); err != nil {
		return err
	}

	s.audit.Record("added record", rec.FQDN, "ips", len(rec.LastResolvedIPs))
	return nil
}

// Update implements [Store].
func (s *FileStore) Update(fqdn string, ips []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(records, fqdn)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fqdn)
	}

	records[i].LastResolvedIPs = slices.Clone(ips)
	if err := s.save(records); err != nil {
		return err
	}

	s.audit.Record("updated record", fqdn, "ips", len(ips))
	return nil
}

// Remove implements [Store].
func (s *FileStore) Remove(fqdn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(records, fqdn)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, fqdn)
	}

	records = slices.Delete(records, i, i+1)
	if err := s.save(records); err != nil {
		return err
	}

	s.audit.Record("removed record", fqdn)
	return nil
}

// Get implements [Store]. An unreadable backing file reads as empty.
func (s *FileStore) Get(fqdn string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadForRead()
	if i := indexOf(records, fqdn); i >= 0 {
		return records[i].Clone(), nil
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, fqdn)
}

// List implements [Store]. An unreadable backing file reads as empty.
func (s *FileStore) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.loadForRead()
	sortByFQDN(records)
	return records, nil
}

// Close implements [Store]. The file store holds no open handles.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) loadForRead() []Record {
	records, err := s.load()
	if err != nil {
		s.logger.Warn("record store unreadable, treating as empty", "path", s.path, "error", err)
		return nil
	}
	return records
}

// load reads the whole store. A missing file is an empty store; a file
// that exists but cannot be parsed is a persistence failure so that a
// mutation never overwrites data it could not read.
func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []fileRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, s.path, err)
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		records = append(records, fromFileRecord(r))
	}
	return records, nil
}

// save writes records to a temporary file next to the target and renames
// it into place.
func (s *FileStore) save(records []Record) error {
	raw := make([]fileRecord, 0, len(records))
	for _, r := range records {
		raw = append(raw, toFileRecord(r))
	}

	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrPersistence, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrPersistence, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrPersistence, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrPersistence, s.path, err)
	}
	return nil
}

func indexOf(records []Record, fqdn string) int {
	return slices.IndexFunc(records, func(r Record) bool { return r.FQDN == fqdn })
}

func sortByFQDN(records []Record) {
	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.FQDN, b.FQDN) })
}
