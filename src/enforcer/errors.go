// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import "errors"

// Sentinel errors for the enforcer package.
var (
	// ErrSetNotFound is returned when an address set identifier is unknown.
	ErrSetNotFound = errors.New("enforcer: address set not found")

	// ErrRuleNotFound is returned when no rule carries the given name.
	ErrRuleNotFound = errors.New("enforcer: rule not found")

	// ErrRuleExists is returned when a rule with the same name is already installed.
	ErrRuleExists = errors.New("enforcer: rule already exists")

	// ErrInvalidAddress is returned when an address is not a valid IPv4 or IPv6 literal.
	ErrInvalidAddress = errors.New("enforcer: invalid address")

	// ErrInvalidPrefix is returned when the identifier prefix cannot form a valid set name.
	ErrInvalidPrefix = errors.New("enforcer: invalid set prefix")

	// ErrCommandFailed is returned when an ipset or iptables invocation fails.
	ErrCommandFailed = errors.New("enforcer: command failed")

	// ErrUnavailable is returned by Init when the packet-filtering tools cannot be run.
	ErrUnavailable = errors.New("enforcer: packet filter unavailable")

	// ErrUnknownBackend is returned when a gateway backend name is not recognized.
	ErrUnknownBackend = errors.New("enforcer: unknown backend")
)
