// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/miekg/dns"
)

// Default configuration values.
const (
	defaultTimeout     = 5 * time.Second
	defaultRetries     = 2
	defaultConcurrency = 16
	defaultBackoff     = time.Second
	resolvConfPath     = "/etc/resolv.conf"
)

// DefaultEDNS0Size is the advertised EDNS0 UDP buffer size, the value
// recommended to prevent IP fragmentation.
const DefaultEDNS0Size = 1232

// fallbackServers are used when /etc/resolv.conf cannot be read.
var fallbackServers = []string{"1.1.1.1:53", "8.8.8.8:53"}

// Resolver turns an FQDN into its current set of IP addresses.
//
// An empty result means resolution failed (or the name has no
// addresses); callers never distinguish between the two.
type Resolver interface {
	Resolve(ctx context.Context, fqdn string) []string
}

// Func adapts an ordinary function to the [Resolver] interface.
type Func func(ctx context.Context, fqdn string) []string

// Resolve implements [Resolver].
func (f Func) Resolve(ctx context.Context, fqdn string) []string {
	return f(ctx, fqdn)
}

// DNS resolves names by querying DNS servers directly, asking for both
// A and AAAA records. Servers are tried in order; a server that fails
// after its retries is skipped in favour of the next one.
type DNS struct {
	mu          sync.RWMutex
	servers     []string
	timeout     time.Duration
	maxRetries  int
	concurrency int
	backoff     time.Duration
	edns0Size   uint16
	network     string
	dnsClient   *dns.Client
	logger      *log.Logger
}

var _ Resolver = (*DNS)(nil)

// New creates a new [DNS] resolver using the nameservers listed in
// /etc/resolv.conf. Use functional options to customize behavior.
//
//	// Default configuration:
//	r := resolver.New()
//
//	// Custom configuration:
//	r := resolver.New(
//	    resolver.WithServers("1.1.1.1", "9.9.9.9"),
//	    resolver.WithTimeout(2 * time.Second),
//	)
func New(opts ...Option) *DNS {
	r := &DNS{
		servers:     systemServers(),
		timeout:     defaultTimeout,
		maxRetries:  defaultRetries,
		concurrency: defaultConcurrency,
		backoff:     defaultBackoff,
		edns0Size:   DefaultEDNS0Size,
		network:     "udp",
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}

	// Initialize shared DNS client if not set by WithDNSClient option.
	if r.dnsClient == nil {
		r.dnsClient = &dns.Client{
			Timeout: r.timeout,
			Net:     r.network,
		}
	}

	return r
}

// systemServers reads the nameservers from /etc/resolv.conf, falling
// back to public resolvers.
func systemServers() []string {
	cfg, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil || len(cfg.Servers) == 0 {
		return append([]string(nil), fallbackServers...)
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, withPort(s))
	}
	return servers
}

// Servers returns a copy of the currently configured DNS servers.
func (r *DNS) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	servers := make([]string, len(r.servers))
	copy(servers, r.servers)
	return servers
}

// Resolve implements [Resolver]. Failures are logged and reported as an
// empty result.
func (r *DNS) Resolve(ctx context.Context, fqdn string) []string {
	ips, err := r.Lookup(ctx, fqdn)
	if err != nil {
		r.logger.Warn("resolution failed", "fqdn", fqdn, "err", err)
		return nil
	}
	r.logger.Debug("resolved", "fqdn", fqdn, "ips", len(ips))
	return ips
}

// Lookup resolves fqdn and returns its canonical, sorted address set.
// Unlike [DNS.Resolve] it reports why a lookup failed.
//
// An NXDOMAIN answer is authoritative and ends the lookup without
// trying further servers.
func (r *DNS) Lookup(ctx context.Context, fqdn string) ([]string, error) {
	name, err := Normalize(fqdn)
	if err != nil {
		return nil, err
	}

	servers := r.Servers()
	if len(servers) == 0 {
		return nil, ErrNoServers
	}

	var lastErr error
	for _, srv := range servers {
		ips, err := r.lookupServer(ctx, name, srv)
		if err == nil {
			if len(ips) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrNoAddresses, name)
			}
			return ips, nil
		}
		if errors.Is(err, ErrNXDOMAIN) {
			return nil, fmt.Errorf("%w: %s", err, name)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}

		// This server failed, try next.
		r.logger.Debug("dns server failed", "server", srv, "fqdn", name, "err", err)
		lastErr = err
	}

	// All servers failed.
	return nil, fmt.Errorf("%w: %v", ErrAllServersFailed, lastErr)
}

// lookupServer asks srv for both address families. Both queries must
// succeed, otherwise a partial answer would look like address drift.
func (r *DNS) lookupServer(ctx context.Context, name, srv string) ([]string, error) {
	var ips []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := r.queryWithRetries(ctx, name, srv, qtype)
		if err != nil {
			return nil, err
		}
		ips = append(ips, extractAddresses(resp)...)
	}
	return Canonicalize(ips), nil
}

// queryWithRetries sends a DNS query with retry logic.
//
// Exponential backoff is applied only after query errors. NXDOMAIN is a
// definitive answer and is not retried.
func (r *DNS) queryWithRetries(ctx context.Context, domain, srv string, qtype uint16) (*dns.Msg, error) {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 && lastErr != nil {
			// Exponential backoff only after errors: 1s, 2s, 4s, ...
			backoff := min(
				// Cap backoff to prevent overflow or excessive waits.
				r.backoff<<uint(attempt-1), 30*time.Second)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := queryDNS(ctx, r.dnsClient, domain, srv, qtype, r.edns0Size)
		if err != nil {
			lastErr = err
			continue
		}

		if err := checkRcode(resp); err != nil {
			if errors.Is(err, ErrNXDOMAIN) {
				return nil, err
			}
			lastErr = err
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// Status checks the health of all configured DNS servers.
// It returns the online/offline status and latency for each server.
func (r *DNS) Status(ctx context.Context) ([]ServerStatus, error) {
	servers := r.Servers()
	if len(servers) == 0 {
		return nil, ErrNoServers
	}

	statuses := make([]ServerStatus, len(servers))
	var wg sync.WaitGroup

	// Semaphore to limit concurrency.
	// We use a buffered channel to limit the number
	// of concurrent goroutines.
	sem := make(chan struct{}, r.concurrency)

Loop:
	for i, srv := range servers {
		// Check context before starting new work
		select {
		case <-ctx.Done():
			// Fill remaining results with context error
			for j := i; j < len(servers); j++ {
				statuses[j] = ServerStatus{
					Server: servers[j],
					Error:  ctx.Err(),
				}
			}
			break Loop
		default:
		}

		wg.Add(1)

		// Acquire semaphore before spawning goroutine.
		sem <- struct{}{}

		go func(idx int, server string) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore
			defer func() {
				if rec := recover(); rec != nil {
					statuses[idx] = ServerStatus{
						Server: server,
						Error:  fmt.Errorf("%w: %v", ErrInternalPanic, rec),
					}
				}
			}()

			statuses[idx] = checkDNSHealth(ctx, r.dnsClient, server, r.edns0Size)
		}(i, srv)
	}

	wg.Wait()
	if ctx.Err() != nil {
		return statuses, ctx.Err()
	}
	return statuses, nil
}
