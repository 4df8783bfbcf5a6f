// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// healthCheckDomain is the name resolved by [DNS.Status] to measure
// server latency.
const healthCheckDomain = "example.com"

// withPort returns server as host:port, defaulting to port 53.
func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}

// queryDNS sends a DNS query for the given domain to the specified server.
// It respects context cancellation and the configured timeout.
func queryDNS(ctx context.Context, client *dns.Client, domain, server string, qtype, edns0Size uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(edns0Size, false)

	server = withPort(server)

	// Create a channel to receive the result so we can
	// respect context cancellation.
	type dnsResult struct {
		msg *dns.Msg
		err error
	}
	ch := make(chan dnsResult, 1)

	go func() {
		resp, _, err := client.ExchangeContext(ctx, msg, server)
		ch <- dnsResult{msg: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, result.err
		}
		return result.msg, nil
	}
}

// checkRcode maps a response code to the package's sentinel errors.
// Only NOERROR is a usable answer.
func checkRcode(resp *dns.Msg) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrServerFailure)
	}
	switch resp.Rcode {
	case dns.RcodeSuccess:
		return nil
	case dns.RcodeNameError:
		return ErrNXDOMAIN
	default:
		return fmt.Errorf("%w: %s", ErrServerFailure, dns.RcodeToString[resp.Rcode])
	}
}

// extractAddresses returns the A and AAAA addresses in the Answer
// section of msg. CNAME chains are followed implicitly since recursive
// servers include the terminal records in the same answer.
func extractAddresses(msg *dns.Msg) []string {
	if msg == nil {
		return nil
	}

	var ips []string
	for _, rr := range msg.Answer {
		switch v := rr.(type) {
		case *dns.A:
			ips = append(ips, v.A.String())
		case *dns.AAAA:
			ips = append(ips, v.AAAA.String())
		}
	}
	return ips
}

// checkDNSHealth performs a health check on a single DNS server by
// resolving healthCheckDomain and measuring the latency.
func checkDNSHealth(ctx context.Context, client *dns.Client, server string, edns0Size uint16) ServerStatus {
	start := time.Now()

	resp, err := queryDNS(ctx, client, healthCheckDomain, server, dns.TypeA, edns0Size)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return ServerStatus{
			Server: server,
			Online: false,
			Error:  err,
		}
	}

	if err := checkRcode(resp); err != nil {
		return ServerStatus{
			Server: server,
			Online: false,
			Error:  err,
		}
	}

	return ServerStatus{
		Server:    server,
		Online:    true,
		LatencyMs: latency,
	}
}
