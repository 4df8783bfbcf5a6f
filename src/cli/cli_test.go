// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/config"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/enforcer"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/logging"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/resolver"
)

type fakeDNS struct {
	mu      sync.Mutex
	answers map[string][]string
}

func (f *fakeDNS) set(fqdn string, ips ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[fqdn] = ips
}

func (f *fakeDNS) Resolve(_ context.Context, fqdn string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.answers[fqdn]...)
}

type fixture struct {
	settings   *settings
	gateway    *enforcer.Memory
	dns        *fakeDNS
	dir        string
	configPath string
	storePath  string
}

// newFixture writes a configuration using the memory backend into a
// temporary directory and wires fake collaborators into the settings.
func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	for _, key := range []string{
		config.EnvDefaultInterval, config.EnvStorePath, config.EnvAuditLog,
		config.EnvEnforcerBackend, config.EnvLogLevel, config.EnvMetricsListen,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	dir := t.TempDir()
	f := &fixture{
		gateway:    enforcer.NewMemory(""),
		dns:        &fakeDNS{answers: make(map[string][]string)},
		dir:        dir,
		configPath: filepath.Join(dir, "config", "config.yaml"),
		storePath:  filepath.Join(dir, "data", "audit_store.json"),
	}

	cfg := config.Default()
	cfg.AuditStorePath = f.storePath
	cfg.LogFilePath = filepath.Join(dir, "logs", "fqdn_blocker.log")
	cfg.Enforcer.Backend = enforcer.BackendMemory
	cfg.Logging.Level = "error"
	for _, m := range mutate {
		m(cfg)
	}
	require.NoError(t, cfg.Save(f.configPath))

	f.settings = defaultSettings()
	f.settings.configPath = f.configPath
	f.settings.euid = func() int { return 1000 }
	f.settings.newResolver = func(*config.Config, *log.Logger) resolver.Resolver { return f.dns }
	f.settings.newGateway = func(context.Context, *config.Config, *log.Logger) (enforcer.Gateway, error) {
		return f.gateway, nil
	}
	return f
}

func (f *fixture) execute(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCommand(f.settings)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func (f *fixture) record(t *testing.T, fqdn string) (record.Record, error) {
	t.Helper()
	return record.NewFileStore(f.storePath).Get(fqdn)
}

func TestBlockListRemove(t *testing.T) {
	f := newFixture(t)
	f.dns.set("example.com", "93.184.216.34")
	ctx := context.Background()

	out, errOut, err := f.execute(t, ctx, "block", "example.com", "30", "--no-watch")
	require.NoError(t, err)
	assert.Empty(t, errOut)
	assert.Contains(t, out, "Successfully blocked example.com")
	assert.Contains(t, out, "  - 93.184.216.34")

	rec, err := f.record(t, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 30, rec.IntervalMinutes)
	require.Len(t, f.gateway.Rules(), 1)
	assert.Equal(t, "Block example.com", f.gateway.Rules()[0].Name)

	xlsx := filepath.Join(f.dir, "blocked.xlsx")
	out, _, err = f.execute(t, ctx, "list", "--no-watch", "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "Blocked FQDNs (1)")
	assert.Contains(t, out, "example.com")
	assert.Contains(t, out, "Exported 1 record(s)")
	assert.FileExists(t, xlsx)

	out, _, err = f.execute(t, ctx, "remove", "example.com", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully removed block for example.com")
	assert.Empty(t, f.gateway.Rules())
	assert.Empty(t, f.gateway.Sets())

	_, err = f.record(t, "example.com")
	assert.ErrorIs(t, err, record.ErrNotFound)

	out, _, err = f.execute(t, ctx, "list", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, out, "No FQDNs are currently blocked.")

	audit, err := os.ReadFile(filepath.Join(f.dir, "logs", "fqdn_blocker.log"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), "example.com")
}

func TestBlockDefaultInterval(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.DefaultInterval = 45 })
	f.dns.set("example.com", "1.1.1.1")

	_, _, err := f.execute(t, context.Background(), "block", "example.com", "--no-watch")
	require.NoError(t, err)

	rec, err := f.record(t, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 45, rec.IntervalMinutes)
}

func TestOperationFailuresAreReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, errOut, err := f.execute(t, ctx, "block", "unresolvable.example.com", "--no-watch")
	require.NoError(t, err, "a per-FQDN failure does not fail the process")
	assert.Contains(t, errOut, "Error: block unresolvable.example.com")

	_, errOut, err = f.execute(t, ctx, "remove", "ghost.example.com", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, errOut, "ghost.example.com is not in the blocked list")
	assert.Empty(t, f.gateway.Sets())
}

func TestArgumentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args []string
		is   error
	}{
		{"interval not a number", []string{"block", "example.com", "soon"}, ErrInvalidArgument},
		{"zero interval", []string{"block", "example.com", "0"}, ErrInvalidArgument},
		{"zero default interval", []string{"set-interval", "0"}, ErrInvalidArgument},
		{"interval overflows", []string{"block", "example.com", "200000000"}, ErrInvalidArgument},
		{"default interval overflows", []string{"set-interval", "200000000"}, ErrInvalidArgument},
		{"missing fqdn", []string{"block"}, nil},
		{"remove without fqdn", []string{"remove"}, nil},
		{"extra argument", []string{"refresh", "now"}, nil},
		{"unknown command", []string{"frobnicate"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.execute(t, ctx, append(tt.args, "--no-watch")...)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestSetInterval(t *testing.T) {
	f := newFixture(t)

	out, _, err := f.execute(t, context.Background(), "set-interval", "120", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, out, "Default refresh interval set to 120 minutes")

	cfg, err := config.Load(f.configPath)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.DefaultInterval)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	f.dns.set("example.com", "1.1.1.1")
	ctx := context.Background()

	_, _, err := f.execute(t, ctx, "block", "example.com", "--no-watch")
	require.NoError(t, err)

	f.dns.set("example.com", "1.1.1.1", "2.2.2.2")
	out, _, err := f.execute(t, ctx, "refresh", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, out, "Refresh complete: 1 successful, 0 failed")

	rec, err := f.record(t, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, rec.LastResolvedIPs)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.dns.set("example.com", "1.1.1.1")
	ctx := context.Background()

	_, _, err := f.execute(t, ctx, "block", "example.com", "15", "--no-watch")
	require.NoError(t, err)

	out, _, err := f.execute(t, ctx, "status", "--no-watch")
	require.NoError(t, err)
	assert.Contains(t, out, "Enforcement backend: memory")
	assert.Contains(t, out, "Resolver: system")
	assert.Contains(t, out, "example.com")
	assert.Contains(t, out, "15m0s")
}

func TestForegroundAfterCommand(t *testing.T) {
	f := newFixture(t)
	f.dns.set("example.com", "1.1.1.1")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, _, err := f.execute(t, ctx, "block", "example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Starting scheduler for 1 watch(es)")
}

func TestNoForegroundWithoutWatches(t *testing.T) {
	f := newFixture(t)

	// Returns at once: nothing is watched.
	out, _, err := f.execute(t, context.Background(), "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Starting scheduler")
}

func TestRunCommandHangup(t *testing.T) {
	f := newFixture(t)
	hangup := make(chan os.Signal, 1)
	f.settings.hangup = hangup

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := f.execute(t, ctx, "run")
		done <- err
	}()

	hangup <- os.Interrupt
	// The reload is consumed by the serving loop.
	assert.Eventually(t, func() bool { return len(hangup) == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func TestPrivilegeRequired(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Enforcer.Backend = enforcer.BackendIPSet })
	called := false
	f.settings.newGateway = func(context.Context, *config.Config, *log.Logger) (enforcer.Gateway, error) {
		called = true
		return f.gateway, nil
	}

	_, _, err := f.execute(t, context.Background(), "list", "--no-watch")
	assert.ErrorIs(t, err, ErrPrivilege)
	assert.False(t, called, "the packet filter is not touched without privileges")

	f.settings.euid = func() int { return 0 }
	_, _, err = f.execute(t, context.Background(), "list", "--no-watch")
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestStartupGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.settings.newGateway = func(context.Context, *config.Config, *log.Logger) (enforcer.Gateway, error) {
		return nil, enforcer.ErrUnavailable
	}

	_, _, err := f.execute(t, context.Background(), "list", "--no-watch")
	assert.ErrorIs(t, err, ErrStartup)
	assert.ErrorIs(t, err, enforcer.ErrUnavailable)
}

func TestStartupBadConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.configPath, []byte("default_interval: -1\n"), 0o644))

	_, _, err := f.execute(t, context.Background(), "list", "--no-watch")
	assert.ErrorIs(t, err, ErrStartup)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLogLevelFlag(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.execute(t, context.Background(), "list", "--no-watch", "--log-level", "loud")
	assert.ErrorIs(t, err, ErrStartup)
}

func TestCheckPrivilege(t *testing.T) {
	assert.NoError(t, checkPrivilege("memory", 1000))
	assert.NoError(t, checkPrivilege("MEMORY", 1000))
	assert.NoError(t, checkPrivilege("ipset", 0))
	assert.True(t, errors.Is(checkPrivilege("ipset", 1000), ErrPrivilege))
}

func TestNewGatewayUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Enforcer.Backend = "nftables"
	_, err := newGateway(context.Background(), cfg, logging.Discard())
	assert.ErrorIs(t, err, enforcer.ErrUnknownBackend)

	cfg.Enforcer.Backend = enforcer.BackendMemory
	gw, err := newGateway(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &enforcer.Memory{}, gw)
}

func TestNewResolverMode(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &resolver.System{}, newResolver(cfg, logging.Discard()))

	cfg.Resolver.Mode = config.ResolverDNS
	cfg.Resolver.Servers = []string{"9.9.9.9"}
	r := newResolver(cfg, logging.Discard())
	require.IsType(t, &resolver.DNS{}, r)
	assert.Equal(t, []string{"9.9.9.9:53"}, r.(*resolver.DNS).Servers())
}
