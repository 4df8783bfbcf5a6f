// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import "errors"

var (
	// ErrInvalidConfig is returned when a loaded configuration fails validation.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrParse is returned when the configuration file or an environment
	// override cannot be decoded.
	ErrParse = errors.New("config: parse error")
)
