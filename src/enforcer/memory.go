// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Rule is a rule held by the [Memory] gateway.
type Rule struct {
	Name      string
	SetID     string
	Direction Direction
	Action    Action
}

// Memory is an in-process [Gateway] that enforces nothing. It backs
// dry runs and tests, and lets callers inspect what would have been
// installed.
type Memory struct {
	mu     sync.Mutex
	prefix string
	sets   map[string][]string
	rules  map[string]Rule
}

var _ Gateway = (*Memory)(nil)

// NewMemory returns an empty in-memory gateway. An empty prefix selects
// [DefaultPrefix].
func NewMemory(prefix string) *Memory {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Memory{
		prefix: prefix,
		sets:   make(map[string][]string),
		rules:  make(map[string]Rule),
	}
}

// CreateAddressSet implements [Gateway].
func (m *Memory) CreateAddressSet(_ context.Context, _ string, ips []string) (string, error) {
	v4, v6, err := splitFamilies(ips)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := NewID(m.prefix)
	m.sets[id] = append(v4, v6...)
	return id, nil
}

// UpdateAddressSet implements [Gateway].
func (m *Memory) UpdateAddressSet(_ context.Context, id string, ips []string) error {
	v4, v6, err := splitFamilies(ips)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	m.sets[id] = append(v4, v6...)
	return nil
}

// DeleteAddressSet implements [Gateway].
func (m *Memory) DeleteAddressSet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	delete(m.sets, id)
	return nil
}

// CreateRule implements [Gateway].
func (m *Memory) CreateRule(_ context.Context, ruleName, id string, dir Direction, action Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSetNotFound, id)
	}
	if _, ok := m.rules[ruleName]; ok {
		return fmt.Errorf("%w: %s", ErrRuleExists, ruleName)
	}
	m.rules[ruleName] = Rule{Name: ruleName, SetID: id, Direction: dir, Action: action}
	return nil
}

// DeleteRule implements [Gateway].
func (m *Memory) DeleteRule(_ context.Context, ruleName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[ruleName]; !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, ruleName)
	}
	delete(m.rules, ruleName)
	return nil
}

// Sets returns a copy of every address set keyed by identifier.
func (m *Memory) Sets() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]string, len(m.sets))
	for id, ips := range m.sets {
		out[id] = slices.Clone(ips)
	}
	return out
}

// Rules returns every installed rule, ordered by name.
func (m *Memory) Rules() []Rule {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := slices.Sorted(maps.Keys(m.rules))
	out := make([]Rule, 0, len(names))
	for _, name := range names {
		out = append(out, m.rules[name])
	}
	return out
}
