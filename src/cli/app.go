// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/config"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/enforcer"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/logging"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/reconciler"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/resolver"
)

// App is the process context object. It is built once per command by
// the startup sequence and closed when the command returns.
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *log.Logger
	Store      record.Store
	Resolver   resolver.Resolver
	Gateway    enforcer.Gateway
	Engine     *reconciler.Engine
	Registry   *prometheus.Registry

	// dns is set when the resolver is the miekg/dns one, which supports
	// health checks and server reloads.
	dns       *resolver.DNS
	logCloser io.Closer
}

// settings carries the global flags and the collaborator factories.
// Tests replace the factories.
type settings struct {
	configPath string
	logLevel   string
	noWatch    bool

	euid        func() int
	newResolver func(cfg *config.Config, logger *log.Logger) resolver.Resolver
	newGateway  func(ctx context.Context, cfg *config.Config, logger *log.Logger) (enforcer.Gateway, error)
	hangup      <-chan os.Signal
}

func defaultSettings() *settings {
	return &settings{
		configPath:  config.DefaultPath,
		euid:        os.Geteuid,
		newResolver: newResolver,
		newGateway:  newGateway,
	}
}

// open runs the startup sequence. Any failure is fatal to the command.
func open(ctx context.Context, s *settings) (_ *App, err error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}

	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}
	if s.logLevel != "" {
		cfg.Logging.Level = s.logLevel
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}

	app := &App{
		Config:     cfg,
		ConfigPath: s.configPath,
		Logger:     logger,
		logCloser:  logCloser,
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if err := checkPrivilege(cfg.Enforcer.Backend, s.euid()); err != nil {
		return nil, err
	}

	audit := record.NewAuditLog(cfg.LogFilePath, logger)
	app.Store, err = record.Open(cfg.Store.Backend, cfg.StorePath(),
		record.WithAuditLog(audit),
		record.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: open store: %w", ErrStartup, err)
	}

	app.Resolver = s.newResolver(cfg, logger)
	app.dns, _ = app.Resolver.(*resolver.DNS)

	app.Gateway, err = s.newGateway(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: enforcement layer: %w", ErrStartup, err)
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := reconciler.NewMetrics(app.Registry)
	if err != nil {
		return nil, fmt.Errorf("%w: metrics: %w", ErrStartup, err)
	}

	app.Engine = reconciler.New(app.Store, app.Resolver, app.Gateway,
		reconciler.WithTick(cfg.Scheduler.Tick),
		reconciler.WithResolveTimeout(cfg.Scheduler.ResolveTimeout),
		reconciler.WithGatewayTimeout(cfg.Scheduler.GatewayTimeout),
		reconciler.WithConcurrency(cfg.Scheduler.Concurrency),
		reconciler.WithLogger(logger),
		reconciler.WithMetrics(metrics),
	)
	app.Engine.Initialize()

	summary, err := app.Engine.Hydrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: hydrate: %w", ErrStartup, err)
	}
	if len(summary.Results) > 0 {
		logger.Info("boot pre-hydration complete",
			"records", len(summary.Results), "succeeded", summary.Succeeded, "failed", summary.Failed)
	}

	return app, nil
}

// Close stops the engine and releases the store and the log output.
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		a.Engine.Stop()
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// checkPrivilege requires root for every backend that touches the
// kernel packet filter.
func checkPrivilege(backend string, euid int) error {
	if strings.EqualFold(backend, enforcer.BackendMemory) {
		return nil
	}
	if euid != 0 {
		return fmt.Errorf("%w: the %s backend must run as root (euid %d)", ErrPrivilege, backend, euid)
	}
	return nil
}

func newResolver(cfg *config.Config, logger *log.Logger) resolver.Resolver {
	if !strings.EqualFold(cfg.Resolver.Mode, config.ResolverDNS) {
		return resolver.NewSystem(logger)
	}
	return resolver.New(
		resolver.WithServers(cfg.Resolver.Servers...),
		resolver.WithTimeout(cfg.Resolver.Timeout),
		resolver.WithMaxRetries(cfg.Resolver.MaxRetries),
		resolver.WithNet(cfg.Resolver.Net),
		resolver.WithEDNS0Size(cfg.Resolver.EDNS0Size),
		resolver.WithDNSClient(tlsClient(cfg.Resolver)),
		resolver.WithLogger(logger),
	)
}

// tlsClient returns the DNS-over-TLS client for the tcp-tls transport
// and nil otherwise, which keeps the resolver's default client.
func tlsClient(cfg config.ResolverConfig) *dns.Client {
	if cfg.Net != "tcp-tls" {
		return nil
	}
	return &dns.Client{
		Net:     "tcp-tls",
		Timeout: cfg.Timeout,
		TLSConfig: &tls.Config{
			ServerName: cfg.TLSServerName,
			MinVersion: tls.VersionTLS12,
		},
	}
}

func newGateway(ctx context.Context, cfg *config.Config, logger *log.Logger) (enforcer.Gateway, error) {
	switch strings.ToLower(cfg.Enforcer.Backend) {
	case enforcer.BackendMemory:
		logger.Warn("memory enforcement backend selected, nothing will be blocked")
		return enforcer.NewMemory(cfg.Enforcer.SetPrefix), nil
	case enforcer.BackendIPSet:
		gw := enforcer.NewIPSet(
			enforcer.WithBinaries(cfg.Enforcer.IPSetPath, cfg.Enforcer.IPTablesPath, cfg.Enforcer.IP6TablesPath),
			enforcer.WithSetPrefix(cfg.Enforcer.SetPrefix),
			enforcer.WithLogger(logger),
		)
		if err := gw.Init(ctx); err != nil {
			return nil, err
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("%w: %q", enforcer.ErrUnknownBackend, cfg.Enforcer.Backend)
	}
}
