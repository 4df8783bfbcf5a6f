// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/miekg/dns"
)

// Option is a functional option for configuring a [DNS] resolver.
type Option func(*DNS)

// WithServers replaces all configured DNS servers. Addresses may be
// given as "host" or "host:port"; the port defaults to 53.
// This overrides the servers read from /etc/resolv.conf.
//
// Passing zero servers is a no-op.
func WithServers(servers ...string) Option {
	return func(r *DNS) {
		if len(servers) == 0 {
			return
		}
		r.servers = r.servers[:0]
		for _, s := range servers {
			r.servers = append(r.servers, withPort(s))
		}
	}
}

// WithTimeout sets the timeout for each DNS query.
// The default is 5 seconds.
//
// This option has no effect if a custom DNS client is set via [WithDNSClient],
// as the custom client's own Timeout configuration takes precedence.
func WithTimeout(d time.Duration) Option {
	return func(r *DNS) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithMaxRetries sets the maximum number of retry attempts per DNS query.
// The default is 2 retries (3 total attempts).
func WithMaxRetries(n int) Option {
	return func(r *DNS) {
		if n < 0 {
			n = defaultRetries // Use default on negative input
		}
		r.maxRetries = n
	}
}

// WithNet selects the transport of the default client: "udp", "tcp" or
// "tcp-tls". It has no effect together with [WithDNSClient].
func WithNet(network string) Option {
	return func(r *DNS) {
		if network != "" {
			r.network = network
		}
	}
}

// WithConcurrency sets the maximum number of concurrent health checks
// issued by [DNS.Status]. The default is 16.
func WithConcurrency(n int) Option {
	return func(r *DNS) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDNSClient sets a custom [dns.Client] for all DNS operations.
// This allows full control over the transport configuration, including:
//
//   - TCP transport (Net: "tcp")
//   - DNS-over-TLS (Net: "tcp-tls" with TLSConfig)
//   - Custom Dialer for proxy or interface binding
//
// When set, the [WithTimeout] and [WithNet] options will not affect DNS
// queries; the client's own configuration is used instead.
//
// Passing nil is a no-op and the default client will be used.
func WithDNSClient(client *dns.Client) Option {
	return func(r *DNS) {
		if client != nil {
			r.dnsClient = client
		}
	}
}

// WithEDNS0Size sets the EDNS0 UDP buffer size.
// The default is 1232 bytes, which is the recommended size to prevent
// IP fragmentation over UDP.
//
// See: https://dnsflagday.net/2020/
func WithEDNS0Size(size uint16) Option {
	return func(r *DNS) {
		if size > 0 {
			r.edns0Size = size
		}
	}
}

// WithLogger sets the logger used to report failed resolutions.
// Passing nil is a no-op.
func WithLogger(logger *log.Logger) Option {
	return func(r *DNS) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// SetServers adds or replaces DNS servers on a running [DNS] resolver.
// It is safe to call concurrently with [DNS.Resolve] and [DNS.Status].
//
// For each server provided, if a server with the same address is already
// configured it is left in place; otherwise it is appended.
// The change takes effect for lookups that start after this call
// returns. In-flight lookups use their own snapshot of the server list.
//
// Passing zero servers is a no-op.
func (r *DNS) SetServers(servers ...string) {
	if len(servers) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, server := range servers {
		server = withPort(server)
		found := false
		for _, s := range r.servers {
			if s == server {
				found = true
				break
			}
		}
		if !found {
			r.servers = append(r.servers, server)
		}
	}
}

// ReplaceServers swaps the whole server list at once, which is what a
// configuration reload wants. Passing zero servers restores the
// nameservers of /etc/resolv.conf.
func (r *DNS) ReplaceServers(servers ...string) {
	next := systemServers()
	if len(servers) > 0 {
		next = make([]string, 0, len(servers))
		for _, s := range servers {
			next = append(next, withPort(s))
		}
	}

	r.mu.Lock()
	r.servers = next
	r.mu.Unlock()
}
