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
	"strconv"

	"github.com/joho/godotenv"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// Environment variables that override the configuration file.
const (
	EnvDefaultInterval = "FQDNBLOCK_DEFAULT_INTERVAL"
	EnvStorePath       = "FQDNBLOCK_STORE_PATH"
	EnvAuditLog        = "FQDNBLOCK_AUDIT_LOG"
	EnvEnforcerBackend = "FQDNBLOCK_ENFORCER_BACKEND"
	EnvLogLevel        = "FQDNBLOCK_LOG_LEVEL"
	EnvMetricsListen   = "FQDNBLOCK_METRICS_LISTEN"
)

// LoadDotEnv loads variables from the given .env files (".env" when
// none are named) into the process environment. Variables that are
// already set keep their value. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: %s: %w", ErrParse, f, err)
		}
	}
	return nil
}

// getEnv returns the value of key, or fallback when it is unset.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvDefaultInterval); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrParse, EnvDefaultInterval, v, err)
		}
		c.DefaultInterval = n
	}

	// The store path follows whichever backend is selected.
	if v, ok := os.LookupEnv(EnvStorePath); ok {
		if c.Store.Backend == record.BackendSQLite {
			c.Store.SQLitePath = v
		} else {
			c.AuditStorePath = v
		}
	}

	c.LogFilePath = getEnv(EnvAuditLog, c.LogFilePath)
	c.Enforcer.Backend = getEnv(EnvEnforcerBackend, c.Enforcer.Backend)
	c.Logging.Level = getEnv(EnvLogLevel, c.Logging.Level)
	c.Metrics.Listen = getEnv(EnvMetricsListen, c.Metrics.Listen)
	return nil
}
