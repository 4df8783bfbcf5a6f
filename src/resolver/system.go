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
	"net"
	"net/netip"

	"github.com/charmbracelet/log"
)

// hostLookup is the subset of [net.Resolver] used by [System].
type hostLookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// System resolves names through the host's configured resolver (the Go
// resolver or the platform's, depending on build and GODEBUG), so
// /etc/hosts and search domains are honoured.
type System struct {
	lookup hostLookup
	logger *log.Logger
}

var _ Resolver = (*System)(nil)

// NewSystem returns a resolver backed by [net.DefaultResolver].
// A nil logger discards output.
func NewSystem(logger *log.Logger) *System {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &System{lookup: net.DefaultResolver, logger: logger}
}

// Resolve implements [Resolver].
func (s *System) Resolve(ctx context.Context, fqdn string) []string {
	ips, err := s.Lookup(ctx, fqdn)
	if err != nil {
		s.logger.Warn("resolution failed", "fqdn", fqdn, "err", err)
		return nil
	}
	s.logger.Debug("resolved", "fqdn", fqdn, "ips", len(ips))
	return ips
}

// Lookup resolves fqdn to its canonical, sorted address set.
//
// The IPv4 and IPv6 addresses are looked up separately and both lookups
// must complete: a family with no addresses is fine, but a transient
// failure of either one fails the whole lookup, since a one-family
// answer would look like address drift.
func (s *System) Lookup(ctx context.Context, fqdn string) ([]string, error) {
	name, err := Normalize(fqdn)
	if err != nil {
		return nil, err
	}

	var (
		ips      []string
		notFound int
	)
	for _, network := range []string{"ip4", "ip6"} {
		addrs, err := s.lookup.LookupNetIP(ctx, network, name)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				notFound++
				continue
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrAllServersFailed, network, err)
		}
		for _, addr := range addrs {
			ips = append(ips, addr.String())
		}
	}

	if notFound == 2 {
		return nil, fmt.Errorf("%w: %s", ErrNXDOMAIN, name)
	}
	ips = Canonicalize(ips)
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAddresses, name)
	}
	return ips, nil
}
