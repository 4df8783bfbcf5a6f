// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import "errors"

// Sentinel errors for the resolver package.
var (
	// ErrNoServers is returned when no DNS servers are configured.
	ErrNoServers = errors.New("resolver: no DNS servers configured")

	// ErrAllServersFailed is returned when all configured DNS servers
	// fail to respond to queries.
	ErrAllServersFailed = errors.New("resolver: all DNS servers failed to respond")

	// ErrInvalidDomain is returned when a domain name fails validation.
	ErrInvalidDomain = errors.New("resolver: invalid domain name")

	// ErrTimeout is returned when a DNS query exceeds the configured timeout.
	ErrTimeout = errors.New("resolver: DNS query timed out")

	// ErrInternalPanic is returned when an internal panic is recovered during execution.
	ErrInternalPanic = errors.New("resolver: internal panic recovered")

	// ErrNXDOMAIN is returned when the DNS server responds with NXDOMAIN (domain does not exist).
	ErrNXDOMAIN = errors.New("resolver: nxdomain")

	// ErrServerFailure is returned when a server answers with SERVFAIL or REFUSED.
	ErrServerFailure = errors.New("resolver: server failure")

	// ErrNoAddresses is returned when a lookup completes but yields no
	// IPv4 or IPv6 address.
	ErrNoAddresses = errors.New("resolver: no addresses")
)
