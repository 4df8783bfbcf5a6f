// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/enforcer"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// opLog records the order of side effects across collaborators.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, fmt.Sprintf(format, args...))
}

func (l *opLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.ops)
}

func (l *opLog) withPrefix(prefix string) []string {
	var out []string
	for _, op := range l.all() {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	return out
}

type fakeResolver struct {
	mu      sync.Mutex
	answers map[string][]string
	calls   map[string]int
	panicOn string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{answers: make(map[string][]string), calls: make(map[string]int)}
}

func (r *fakeResolver) set(fqdn string, ips ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers[fqdn] = ips
}

func (r *fakeResolver) count(fqdn string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[fqdn]
}

func (r *fakeResolver) Resolve(_ context.Context, fqdn string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[fqdn]++
	if fqdn == r.panicOn {
		panic("resolver exploded")
	}
	return slices.Clone(r.answers[fqdn])
}

// recordingGateway wraps the in-memory gateway, logging every call and
// failing the operations listed in fail.
type recordingGateway struct {
	*enforcer.Memory
	log  *opLog
	mu   sync.Mutex
	fail map[string]error
}

func newRecordingGateway(log *opLog) *recordingGateway {
	return &recordingGateway{Memory: enforcer.NewMemory("test"), log: log, fail: make(map[string]error)}
}

func (g *recordingGateway) failOp(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[op] = err
}

func (g *recordingGateway) failure(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fail[op]
}

func (g *recordingGateway) CreateAddressSet(ctx context.Context, name string, ips []string) (string, error) {
	g.log.add("gateway-create-set %s %v", name, ips)
	if err := g.failure("create-set"); err != nil {
		return "", err
	}
	return g.Memory.CreateAddressSet(ctx, name, ips)
}

func (g *recordingGateway) UpdateAddressSet(ctx context.Context, id string, ips []string) error {
	g.log.add("gateway-update-set %s %v", id, ips)
	if err := g.failure("update-set"); err != nil {
		return err
	}
	return g.Memory.UpdateAddressSet(ctx, id, ips)
}

func (g *recordingGateway) DeleteAddressSet(ctx context.Context, id string) error {
	g.log.add("gateway-delete-set %s", id)
	if err := g.failure("delete-set"); err != nil {
		return err
	}
	return g.Memory.DeleteAddressSet(ctx, id)
}

func (g *recordingGateway) CreateRule(ctx context.Context, ruleName, id string, dir enforcer.Direction, action enforcer.Action) error {
	g.log.add("gateway-create-rule %s", ruleName)
	if err := g.failure("create-rule"); err != nil {
		return err
	}
	return g.Memory.CreateRule(ctx, ruleName, id, dir, action)
}

func (g *recordingGateway) DeleteRule(ctx context.Context, ruleName string) error {
	g.log.add("gateway-delete-rule %s", ruleName)
	if err := g.failure("delete-rule"); err != nil {
		return err
	}
	return g.Memory.DeleteRule(ctx, ruleName)
}

// recordingStore wraps a real file store, logging mutations.
type recordingStore struct {
	record.Store
	log     *opLog
	failAdd error
}

func (s *recordingStore) Add(rec record.Record) error {
	s.log.add("store-add %s", rec.FQDN)
	if s.failAdd != nil {
		return s.failAdd
	}
	return s.Store.Add(rec)
}

func (s *recordingStore) Update(fqdn string, ips []string) error {
	s.log.add("store-update %s %v", fqdn, ips)
	return s.Store.Update(fqdn, ips)
}

func (s *recordingStore) Remove(fqdn string) error {
	s.log.add("store-remove %s", fqdn)
	return s.Store.Remove(fqdn)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	engine   *Engine
	store    *recordingStore
	resolver *fakeResolver
	gateway  *recordingGateway
	clock    *fakeClock
	log      *opLog
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	log := &opLog{}
	h := &harness{
		store: &recordingStore{
			Store: record.NewFileStore(filepath.Join(t.TempDir(), "audit_store.json")),
			log:   log,
		},
		resolver: newFakeResolver(),
		gateway:  newRecordingGateway(log),
		clock:    newFakeClock(),
		log:      log,
	}
	h.engine = New(h.store, h.resolver, h.gateway,
		append([]Option{WithClock(h.clock)}, opts...)...)
	return h
}

// seed stores a record and matching enforcement objects directly,
// bypassing Block.
func (h *harness) seed(t *testing.T, fqdn string, interval int, ips ...string) record.Record {
	t.Helper()
	id, err := h.gateway.Memory.CreateAddressSet(context.Background(), fqdn, ips)
	if err != nil {
		t.Fatal(err)
	}
	rec := record.New(fqdn, id, RuleName(fqdn), ips, interval)
	if err := h.store.Store.Add(rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
