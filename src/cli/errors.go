// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import "errors"

var (
	// ErrPrivilege is returned when the process lacks the privileges the
	// selected enforcement backend needs.
	ErrPrivilege = errors.New("cli: root privileges required")

	// ErrStartup is returned when the startup sequence fails.
	ErrStartup = errors.New("cli: startup failed")

	// ErrInvalidArgument is returned for a malformed command argument.
	ErrInvalidArgument = errors.New("cli: invalid argument")
)
