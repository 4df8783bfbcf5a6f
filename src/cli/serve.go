// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/config"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the scheduler in the foreground until ctx is done or the
// process receives SIGINT or SIGTERM. A value on hangup (SIGHUP when
// nil) reloads the configuration. When metrics.listen is set, the
// status endpoint is served for the same duration.
func (a *App) Serve(ctx context.Context, hangup <-chan os.Signal) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if hangup == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGHUP)
		defer signal.Stop(ch)
		hangup = ch
	}

	var srv *http.Server
	if addr := a.Config.Metrics.Listen; addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("status endpoint: %w", err)
		}
		srv = &http.Server{
			Handler:           a.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("status endpoint stopped", "err", err)
			}
		}()
		a.Logger.Info("status endpoint listening", "addr", ln.Addr().String())
	}

	a.Engine.Start()
	defer a.Engine.Stop()

	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				_ = srv.Shutdown(sctx)
				cancel()
			}
			return nil
		case <-hangup:
			a.Reload()
		}
	}
}

// Reload re-reads the configuration file and applies what can change
// at runtime: the DNS servers, the log level and the default interval.
// A configuration that fails to load is ignored.
func (a *App) Reload() {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		a.Logger.Warn("reload failed, keeping current configuration", "err", err)
		return
	}

	if a.dns != nil {
		a.dns.ReplaceServers(cfg.Resolver.Servers...)
	}
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		a.Logger.SetLevel(level)
	}
	a.Config.DefaultInterval = cfg.DefaultInterval
	a.Config.Resolver.Servers = cfg.Resolver.Servers

	a.Logger.Info("configuration reloaded", "path", a.ConfigPath)
}

// watchView is the JSON shape of one watch on /watches.
type watchView struct {
	FQDN            string    `json:"fqdn"`
	IntervalMinutes int       `json:"interval_minutes"`
	NextRun         time.Time `json:"next_run"`
}

// Router returns the status endpoint handler.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, middleware.Timeout(10*time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", a.health)
	r.Get("/watches", a.watches)
	return r
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"ok":      true,
		"running": a.Engine.IsRunning(),
		"watches": a.Engine.WatchCount(),
	})
}

func (a *App) watches(w http.ResponseWriter, _ *http.Request) {
	watches := a.Engine.Watches()
	out := make([]watchView, 0, len(watches))
	for _, wt := range watches {
		out = append(out, watchView{
			FQDN:            wt.FQDN,
			IntervalMinutes: int(wt.Interval / time.Minute),
			NextRun:         wt.NextRun.UTC(),
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
