// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import (
	"net/netip"
	"slices"
)

// ServerStatus represents the health status of a DNS server.
type ServerStatus struct {
	// Server is the DNS server address (host:port).
	Server string `json:"server"`

	// Online indicates whether the server responded successfully.
	Online bool `json:"online"`

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// Error holds any error encountered during the health check.
	Error error `json:"-"`
}

// Canonicalize parses each entry of ips as an IP address, drops the ones
// that do not parse, renders the rest in canonical text form and returns
// them sorted and de-duplicated. IPv4-mapped IPv6 addresses are unmapped
// so that the same host never appears twice.
//
// The result is never nil.
func Canonicalize(ips []string) []string {
	addrs := make([]netip.Addr, 0, len(ips))
	for _, s := range ips {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr.Unmap().WithZone(""))
	}

	slices.SortFunc(addrs, func(a, b netip.Addr) int { return a.Compare(b) })
	addrs = slices.Compact(addrs)

	out := make([]string, len(addrs))
	for i, addr := range addrs {
		out[i] = addr.String()
	}
	return out
}
