// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/enforcer"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/resolver"
)

// DefaultPath is where the configuration file is looked up when no
// path is given.
const DefaultPath = "config/config.yaml"

// Resolver modes.
const (
	ResolverSystem = "system"
	ResolverDNS    = "dns"
)

// Config is the full fqdnblock configuration.
type Config struct {
	// DefaultInterval is the refresh cadence, in minutes, used by block
	// when no interval is given.
	DefaultInterval int `yaml:"default_interval"`

	// AuditStorePath is the record store location.
	AuditStorePath string `yaml:"audit_store_path"`

	// LogFilePath is the append-only audit log.
	LogFilePath string `yaml:"log_file_path"`

	Store     StoreConfig     `yaml:"store"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Enforcer  EnforcerConfig  `yaml:"enforcer"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
}

// ResolverConfig configures name resolution.
type ResolverConfig struct {
	Mode       string        `yaml:"mode"`
	Servers    []string      `yaml:"servers"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	Net        string        `yaml:"net"`

	// EDNS0Size is the UDP buffer size advertised in queries.
	EDNS0Size uint16 `yaml:"edns0_size"`

	// TLSServerName is the name verified against the server
	// certificate when Net is "tcp-tls". Empty uses the server host.
	TLSServerName string `yaml:"tls_server_name"`
}

// EnforcerConfig configures the enforcement gateway.
type EnforcerConfig struct {
	Backend       string `yaml:"backend"`
	IPSetPath     string `yaml:"ipset_path"`
	IPTablesPath  string `yaml:"iptables_path"`
	IP6TablesPath string `yaml:"ip6tables_path"`
	SetPrefix     string `yaml:"set_prefix"`
}

// SchedulerConfig configures the reconciliation engine.
type SchedulerConfig struct {
	Tick           time.Duration `yaml:"tick"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout"`
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`
	Concurrency    int           `yaml:"concurrency"`
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig configures the HTTP status endpoint. An empty Listen
// address disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultInterval: 60,
		AuditStorePath:  "data/audit_store.json",
		LogFilePath:     "logs/fqdn_blocker.log",
		Store: StoreConfig{
			Backend:    record.BackendJSON,
			SQLitePath: "data/audit_store.db",
		},
		Resolver: ResolverConfig{
			Mode:       ResolverSystem,
			Timeout:    5 * time.Second,
			MaxRetries: 2,
			Net:        "udp",
			EDNS0Size:  resolver.DefaultEDNS0Size,
		},
		Enforcer: EnforcerConfig{
			Backend:       enforcer.BackendIPSet,
			IPSetPath:     "ipset",
			IPTablesPath:  "iptables",
			IP6TablesPath: "ip6tables",
			SetPrefix:     enforcer.DefaultPrefix,
		},
		Scheduler: SchedulerConfig{
			Tick:           10 * time.Second,
			ResolveTimeout: 15 * time.Second,
			GatewayTimeout: 15 * time.Second,
			Concurrency:    8,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads the configuration at path on top of the defaults, then
// applies environment overrides and validates the result. An empty
// path selects [DefaultPath]. A missing file leaves the defaults in
// place.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %w", ErrParse, path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillDefaults restores defaults for keys a file set to their zero value.
func (c *Config) fillDefaults() {
	d := Default()
	if c.AuditStorePath == "" {
		c.AuditStorePath = d.AuditStorePath
	}
	if c.Store.Backend == "" {
		c.Store.Backend = d.Store.Backend
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = d.Store.SQLitePath
	}
	if c.Resolver.Mode == "" {
		c.Resolver.Mode = d.Resolver.Mode
	}
	if c.Resolver.Net == "" {
		c.Resolver.Net = d.Resolver.Net
	}
	if c.Resolver.EDNS0Size == 0 {
		c.Resolver.EDNS0Size = d.Resolver.EDNS0Size
	}
	if c.Enforcer.Backend == "" {
		c.Enforcer.Backend = d.Enforcer.Backend
	}
	if c.Enforcer.IPSetPath == "" {
		c.Enforcer.IPSetPath = d.Enforcer.IPSetPath
	}
	if c.Enforcer.IPTablesPath == "" {
		c.Enforcer.IPTablesPath = d.Enforcer.IPTablesPath
	}
	if c.Enforcer.IP6TablesPath == "" {
		c.Enforcer.IP6TablesPath = d.Enforcer.IP6TablesPath
	}
	if c.Enforcer.SetPrefix == "" {
		c.Enforcer.SetPrefix = d.Enforcer.SetPrefix
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.Logging.Output == "" {
		c.Logging.Output = d.Logging.Output
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if err := record.ValidateInterval(c.DefaultInterval); err != nil {
		return invalid("default_interval: %v", err)
	}

	switch strings.ToLower(c.Store.Backend) {
	case record.BackendJSON, record.BackendSQLite:
	default:
		return invalid("unknown store backend %q", c.Store.Backend)
	}

	switch strings.ToLower(c.Resolver.Mode) {
	case ResolverSystem, ResolverDNS:
	default:
		return invalid("unknown resolver mode %q", c.Resolver.Mode)
	}
	if c.Resolver.Timeout <= 0 {
		return invalid("resolver.timeout must be positive")
	}
	if c.Resolver.MaxRetries < 0 {
		return invalid("resolver.max_retries must not be negative")
	}
	if !slices.Contains([]string{"udp", "tcp", "tcp-tls"}, c.Resolver.Net) {
		return invalid("unknown resolver.net %q", c.Resolver.Net)
	}
	if c.Resolver.EDNS0Size < dns.MinMsgSize {
		return invalid("resolver.edns0_size must be at least %d, got %d", dns.MinMsgSize, c.Resolver.EDNS0Size)
	}
	if c.Resolver.TLSServerName != "" && c.Resolver.Net != "tcp-tls" {
		return invalid("resolver.tls_server_name requires resolver.net tcp-tls")
	}

	switch strings.ToLower(c.Enforcer.Backend) {
	case enforcer.BackendIPSet, enforcer.BackendMemory:
	default:
		return invalid("unknown enforcer backend %q", c.Enforcer.Backend)
	}
	if err := enforcer.ValidatePrefix(c.Enforcer.SetPrefix); err != nil {
		return invalid("enforcer.set_prefix: %v", err)
	}

	if c.Scheduler.Tick <= 0 || c.Scheduler.ResolveTimeout <= 0 || c.Scheduler.GatewayTimeout <= 0 {
		return invalid("scheduler durations must be positive")
	}
	if c.Scheduler.Concurrency <= 0 {
		return invalid("scheduler.concurrency must be positive")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		return invalid("unknown logging.level %q", c.Logging.Level)
	}
	if !slices.Contains([]string{"text", "json", "logfmt"}, strings.ToLower(c.Logging.Format)) {
		return invalid("unknown logging.format %q", c.Logging.Format)
	}

	return nil
}

// StorePath returns the location of the record store for the selected
// backend.
func (c *Config) StorePath() string {
	if strings.EqualFold(c.Store.Backend, record.BackendSQLite) {
		return c.Store.SQLitePath
	}
	return c.AuditStorePath
}

// Save writes c to path as YAML, creating the directory when needed.
// An empty path selects [DefaultPath].
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
