// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads the fqdnblock configuration.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults ([Default]),
//  2. a YAML file (config/config.yaml unless told otherwise),
//  3. FQDNBLOCK_* environment variables, optionally seeded from a .env
//     file in the working directory.
//
// A missing YAML file is not an error. [Config.Save] writes the file
// back, which is how set-interval persists a new default interval.
package config
