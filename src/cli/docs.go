// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli implements the fqdnblock command line.
//
// Every command builds an [App], the process context object that owns
// the configuration, logger, record store, resolver, enforcement
// gateway and reconciliation engine. Building it runs the startup
// sequence: load configuration, build the logger, check privileges,
// open the store, build the resolver and the gateway, initialize the
// engine and hydrate it from the stored records.
//
// After a command finishes, the scheduler keeps running in the
// foreground while any FQDN is watched, until SIGINT or SIGTERM.
// Pass --no-watch to exit right away instead.
package cli
