// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(opts ...Option) *DNS {
	r := New(append([]Option{
		WithTimeout(500 * time.Millisecond),
		WithMaxRetries(0),
	}, opts...)...)
	r.backoff = 10 * time.Millisecond
	return r
}

func TestLookupCollectsBothFamilies(t *testing.T) {
	addr, cleanup := startTestDNSServer(t, answerHandler(
		[]string{"93.184.216.34", "93.184.216.34", "1.2.3.4"},
		[]string{"2606:2800:220:1::"},
	))
	defer cleanup()

	r := newTestResolver(WithServers(addr))

	ips, err := r.Lookup(context.Background(), "Example.COM.")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.2.3.4", "93.184.216.34", "2606:2800:220:1::"}, ips)
	assert.Equal(t, ips, r.Resolve(context.Background(), "example.com"))
}

func TestLookupFailover(t *testing.T) {
	bad, cleanupBad := startTestDNSServer(t, rcodeHandler(dns.RcodeServerFailure))
	defer cleanupBad()
	good, cleanupGood := startTestDNSServer(t, answerHandler([]string{"10.0.0.1"}, nil))
	defer cleanupGood()

	r := newTestResolver(WithServers(bad, good))

	ips, err := r.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, ips)
}

func TestLookupNXDOMAINStopsFailover(t *testing.T) {
	var secondHit atomic.Bool

	nx, cleanupNX := startTestDNSServer(t, rcodeHandler(dns.RcodeNameError))
	defer cleanupNX()
	other, cleanupOther := startTestDNSServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		secondHit.Store(true)
		answerHandler([]string{"10.0.0.1"}, nil)(w, r)
	})
	defer cleanupOther()

	r := newTestResolver(WithServers(nx, other))

	_, err := r.Lookup(context.Background(), "missing.example.com")
	assert.ErrorIs(t, err, ErrNXDOMAIN)
	assert.False(t, secondHit.Load(), "NXDOMAIN is authoritative")
	assert.Empty(t, r.Resolve(context.Background(), "missing.example.com"))
}

func TestLookupNoAddresses(t *testing.T) {
	addr, cleanup := startTestDNSServer(t, answerHandler(nil, nil))
	defer cleanup()

	r := newTestResolver(WithServers(addr))

	_, err := r.Lookup(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrNoAddresses)
}

func TestLookupAllServersFailed(t *testing.T) {
	addr, cleanup := startTestDNSServer(t, rcodeHandler(dns.RcodeRefused))
	defer cleanup()

	r := newTestResolver(WithServers(addr))

	_, err := r.Lookup(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrAllServersFailed)
	assert.Nil(t, r.Resolve(context.Background(), "example.com"))
}

func TestLookupInvalidDomain(t *testing.T) {
	r := newTestResolver(WithServers("127.0.0.1:1"))

	_, err := r.Lookup(context.Background(), "not a domain")
	assert.ErrorIs(t, err, ErrInvalidDomain)
}

func TestLookupNoServers(t *testing.T) {
	r := newTestResolver()
	r.servers = nil

	_, err := r.Lookup(context.Background(), "example.com")
	assert.ErrorIs(t, err, ErrNoServers)

	_, err = r.Status(context.Background())
	assert.ErrorIs(t, err, ErrNoServers)
}

func TestQueryWithRetriesRetry(t *testing.T) {
	var attempts atomic.Int32

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		n := attempts.Add(1)
		if n < 3 {
			// First two attempts: don't respond (let timeout trigger retry).
			return
		}
		answerHandler([]string{"1.2.3.4"}, nil)(w, r)
	})

	addr, cleanup := startTestDNSServer(t, handler)
	defer cleanup()

	r := New(
		WithTimeout(300*time.Millisecond),
		WithMaxRetries(2),
	)
	r.backoff = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := r.queryWithRetries(ctx, "example.com", addr, dns.TypeA)
	require.NoError(t, err, "expected success after retries")
	assert.Equal(t, []string{"1.2.3.4"}, extractAddresses(resp))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueryWithRetriesNXDOMAINNotRetried(t *testing.T) {
	var attempts atomic.Int32

	addr, cleanup := startTestDNSServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		attempts.Add(1)
		rcodeHandler(dns.RcodeNameError)(w, r)
	})
	defer cleanup()

	r := newTestResolver(WithMaxRetries(3))

	_, err := r.queryWithRetries(context.Background(), "example.com", addr, dns.TypeA)
	assert.ErrorIs(t, err, ErrNXDOMAIN)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestQueryWithRetriesContextCancel(t *testing.T) {
	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		time.Sleep(10 * time.Second) // Never respond.
	})

	addr, cleanup := startTestDNSServer(t, handler)
	defer cleanup()

	r := New(
		WithTimeout(5*time.Second),
		WithMaxRetries(3),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := r.queryWithRetries(ctx, "example.com", addr, dns.TypeA)
	assert.Error(t, err, "expected error for cancelled context")
}

func TestLookupAdvertisesEDNS0Size(t *testing.T) {
	var size atomic.Uint32
	addr, cleanup := startTestDNSServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		if opt := r.IsEdns0(); opt != nil {
			size.Store(uint32(opt.UDPSize()))
		}
		answerHandler([]string{"10.0.0.1"}, nil)(w, r)
	})
	defer cleanup()

	r := newTestResolver(WithServers(addr))
	_, err := r.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultEDNS0Size), size.Load())

	r = newTestResolver(WithServers(addr), WithEDNS0Size(4096))
	_, err = r.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), size.Load())

	// Zero keeps the default.
	r = newTestResolver(WithServers(addr), WithEDNS0Size(0))
	_, err = r.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, uint32(DefaultEDNS0Size), size.Load())
}

func TestLookupWithDNSClient(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &dns.Server{Listener: l, Handler: answerHandler([]string{"10.0.0.7"}, nil)}
	started := make(chan struct{})
	server.NotifyStartedFunc = func() { close(started) }
	go func() { _ = server.ActivateAndServe() }()
	<-started
	defer server.Shutdown()

	addr := l.Addr().String()

	// Nothing listens on UDP, so only the supplied TCP client succeeds.
	r := newTestResolver(
		WithServers(addr),
		WithTimeout(200*time.Millisecond),
		WithDNSClient(&dns.Client{Net: "tcp", Timeout: time.Second}),
	)
	ips, err := r.Lookup(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.7"}, ips)

	r = newTestResolver(WithServers(addr), WithDNSClient(nil), WithTimeout(200*time.Millisecond))
	_, err = r.Lookup(context.Background(), "example.com")
	assert.Error(t, err, "the default UDP client cannot reach a TCP-only server")
}

func TestServersManagement(t *testing.T) {
	r := newTestResolver(WithServers("10.0.0.1", "10.0.0.2:5353"))
	assert.Equal(t, []string{"10.0.0.1:53", "10.0.0.2:5353"}, r.Servers())

	r.SetServers("10.0.0.1", "10.0.0.3")
	assert.Equal(t, []string{"10.0.0.1:53", "10.0.0.2:5353", "10.0.0.3:53"}, r.Servers())

	r.SetServers()
	assert.Len(t, r.Servers(), 3)

	// The returned slice is a copy.
	servers := r.Servers()
	servers[0] = "mutated"
	assert.Equal(t, "10.0.0.1:53", r.Servers()[0])

	r.ReplaceServers("9.9.9.9", "149.112.112.112:53")
	assert.Equal(t, []string{"9.9.9.9:53", "149.112.112.112:53"}, r.Servers())

	r.ReplaceServers()
	assert.NotEmpty(t, r.Servers(), "an empty reload falls back to the system servers")
}

func TestStatus(t *testing.T) {
	good, cleanupGood := startTestDNSServer(t, answerHandler([]string{"1.2.3.4"}, nil))
	defer cleanupGood()
	bad, cleanupBad := startTestDNSServer(t, rcodeHandler(dns.RcodeRefused))
	defer cleanupBad()

	r := newTestResolver(WithServers(good, bad), WithConcurrency(1))

	statuses, err := r.Status(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Online)
	assert.Equal(t, good, statuses[0].Server)
	assert.False(t, statuses[1].Online)
	assert.Error(t, statuses[1].Error)
}

func TestStatusUnreachable(t *testing.T) {
	r := newTestResolver(
		WithServers("127.0.0.1:19998", "127.0.0.1:19999"),
		WithTimeout(200*time.Millisecond),
	)

	assert.NotPanics(t, func() {
		statuses, _ := r.Status(context.Background())
		require.Len(t, statuses, 2)
		for _, s := range statuses {
			assert.False(t, s.Online, "expected offline for unreachable server")
			assert.Error(t, s.Error)
		}
	})
}

func TestStatusContextCancellationEarly(t *testing.T) {
	r := newTestResolver(WithServers("10.0.0.1", "10.0.0.2"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	statuses, err := r.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, statuses, 2)
	for i, s := range statuses {
		assert.True(t, errors.Is(s.Error, context.Canceled), "status[%d]", i)
	}
}

func TestFunc(t *testing.T) {
	var r Resolver = Func(func(ctx context.Context, fqdn string) []string {
		return []string{fqdn}
	})
	assert.Equal(t, []string{"example.com"}, r.Resolve(context.Background(), "example.com"))
}

// fakeHostLookup answers per network ("ip4" or "ip6").
type fakeHostLookup struct {
	addrs map[string][]netip.Addr
	errs  map[string]error
}

func (f fakeHostLookup) LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error) {
	return f.addrs[network], f.errs[network]
}

func notFound(host string) error {
	return &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func TestSystemResolver(t *testing.T) {
	t.Run("both families", func(t *testing.T) {
		s := NewSystem(nil)
		s.lookup = fakeHostLookup{addrs: map[string][]netip.Addr{
			"ip4": {netip.MustParseAddr("10.0.0.2")},
			"ip6": {netip.MustParseAddr("::ffff:10.0.0.2"), netip.MustParseAddr("2001:db8::1")},
		}}
		assert.Equal(t, []string{"10.0.0.2", "2001:db8::1"}, s.Resolve(context.Background(), "example.com"))
	})

	t.Run("single family", func(t *testing.T) {
		s := NewSystem(nil)
		s.lookup = fakeHostLookup{
			addrs: map[string][]netip.Addr{"ip4": {netip.MustParseAddr("10.0.0.2")}},
			errs:  map[string]error{"ip6": notFound("v4only.example.com")},
		}
		ips, err := s.Lookup(context.Background(), "v4only.example.com")
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.2"}, ips)
	})

	t.Run("one family fails", func(t *testing.T) {
		s := NewSystem(nil)
		s.lookup = fakeHostLookup{
			addrs: map[string][]netip.Addr{"ip4": {netip.MustParseAddr("10.0.0.2")}},
			errs: map[string]error{"ip6": &net.DNSError{
				Err: "server misbehaving", Name: "example.com", IsTemporary: true,
			}},
		}
		_, err := s.Lookup(context.Background(), "example.com")
		assert.ErrorIs(t, err, ErrAllServersFailed)
		assert.Nil(t, s.Resolve(context.Background(), "example.com"),
			"a partial answer is a failure, not a smaller address set")
	})

	t.Run("not found", func(t *testing.T) {
		s := NewSystem(nil)
		s.lookup = fakeHostLookup{errs: map[string]error{
			"ip4": notFound("x.example.com"),
			"ip6": notFound("x.example.com"),
		}}
		_, err := s.Lookup(context.Background(), "x.example.com")
		assert.ErrorIs(t, err, ErrNXDOMAIN)
		assert.Nil(t, s.Resolve(context.Background(), "x.example.com"))
	})

	t.Run("empty answer", func(t *testing.T) {
		s := NewSystem(nil)
		s.lookup = fakeHostLookup{}
		_, err := s.Lookup(context.Background(), "example.com")
		assert.ErrorIs(t, err, ErrNoAddresses)
	})

	t.Run("invalid", func(t *testing.T) {
		s := NewSystem(nil)
		_, err := s.Lookup(context.Background(), "-bad-.com")
		assert.ErrorIs(t, err, ErrInvalidDomain)
	})
}
