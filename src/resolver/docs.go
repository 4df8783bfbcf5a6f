// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package resolver turns fully-qualified domain names into the set of
// IPv4 and IPv6 addresses they currently point at.
//
// # Resolvers
//
// Two implementations of [Resolver] are provided:
//
//   - [DNS] queries DNS servers directly with github.com/miekg/dns,
//     issuing an A and an AAAA query per lookup, with retries,
//     exponential backoff after errors and failover across servers.
//   - [System] defers to the host resolver through [net.Resolver].
//
// Both return addresses in canonical text form, sorted and free of
// duplicates (see [Canonicalize]). An empty result signals failure; use
// [DNS.Lookup] or [System.Lookup] when the cause matters.
//
// # Quick Start
//
//	r := resolver.New(
//	    resolver.WithServers("1.1.1.1", "8.8.8.8"),
//	    resolver.WithTimeout(3 * time.Second),
//	)
//	ips := r.Resolve(ctx, "example.com")
//
// # Domain Names
//
// Input is passed through [Normalize] first, which trims the name,
// drops a trailing root dot, lowercases it and converts
// internationalized names to their punycode form.
//
// # Server Health
//
// [DNS.Status] checks every configured server concurrently and reports
// whether it answered along with its latency.
//
// # Error Handling
//
// The package defines sentinel errors for use with [errors.Is]:
//
//	var (
//	    ErrNoServers        // No DNS servers configured
//	    ErrAllServersFailed // All DNS servers failed to respond
//	    ErrInvalidDomain    // Domain name failed validation
//	    ErrTimeout          // DNS query timed out
//	    ErrInternalPanic    // Internal panic recovered
//	    ErrNXDOMAIN         // Domain does not exist
//	    ErrServerFailure    // SERVFAIL, REFUSED or similar
//	    ErrNoAddresses      // Lookup succeeded without addresses
//	)
package resolver
