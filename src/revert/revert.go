// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package revert collects compensating actions for multi-step operations
// so that a failure part-way through can undo the steps already taken.
package revert

import (
	"errors"
	"fmt"
)

// Func undoes one completed step.
type Func func() error

type entry struct {
	name string
	fn   Func
}

// Stack is a LIFO list of revert functions. The zero value is ready to
// use. A Stack is not safe for concurrent use.
type Stack struct {
	entries []entry
}

// Push registers fn, described by name, to undo the most recent step.
func (s *Stack) Push(name string, fn Func) {
	s.entries = append(s.entries, entry{name: name, fn: fn})
}

// Len returns the number of pending revert functions.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Revert runs every registered function in reverse order of
// registration and empties the stack. A failing function does not stop
// the remaining ones; all failures are joined into the returned error.
func (s *Stack) Revert() error {
	var errs []error
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if err := e.fn(); err != nil {
			errs = append(errs, fmt.Errorf("revert %s: %w", e.name, err))
		}
	}
	s.entries = nil
	return errors.Join(errs...)
}
