// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package logging builds the diagnostic logger from configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/config"
)

// ErrInvalidFormat is returned for an unknown logging.format value.
var ErrInvalidFormat = errors.New("logging: unknown format")

// nopCloser closes nothing; stderr and stdout stay open.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger configured by cfg and a closer for its output.
// Output "stderr" and "stdout" name the standard streams; anything else
// is a file path rotated by size.
func New(cfg config.LoggingConfig) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}

	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		rotator := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		out, closer = rotator, rotator
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "fqdnblock",
	})
	return logger, closer, nil
}

func parseFormat(format string) (log.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// Discard returns a logger that writes nothing.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
