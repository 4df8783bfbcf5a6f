// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// action is the body of a command that needs a started [App].
type action func(cmd *cobra.Command, app *App, args []string) error

// Execute runs the fqdnblock command line with args. The returned error
// is set only for startup failures, unknown commands and malformed
// arguments; per-FQDN failures are reported on stderr instead.
func Execute(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand returns the fqdnblock command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultSettings())
}

func newRootCommand(s *settings) *cobra.Command {
	root := &cobra.Command{
		Use:   "fqdnblock",
		Short: "Block FQDNs at the packet filter and follow their DNS changes",
		Long: `fqdnblock resolves a domain name, blocks every address it resolves to
and keeps re-resolving it on a schedule so the block follows the name
when its addresses change.

Blocking needs root unless the memory enforcement backend is selected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", s.configPath, "path to the YAML configuration file")
	flags.BoolVar(&s.noWatch, "no-watch", false, "exit after the command instead of running the scheduler")
	flags.StringVar(&s.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newBlockCommand(s),
		newRefreshCommand(s),
		newListCommand(s),
		newRemoveCommand(s),
		newSetIntervalCommand(s),
		newStatusCommand(s),
		newRunCommand(s),
	)
	return root
}

// run wraps fn with the startup sequence and, unless --no-watch is
// set, keeps the scheduler in the foreground while any FQDN is watched.
func (s *settings) run(fn action) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := open(cmd.Context(), s)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := fn(cmd, app, args); err != nil {
			return err
		}

		if s.noWatch || app.Engine.WatchCount() == 0 {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nStarting scheduler for %d watch(es)...\nPress Ctrl+C to stop.\n",
			app.Engine.WatchCount())
		return app.Serve(cmd.Context(), s.hangup)
	}
}

// minutesArg validates that args[pos], when present, is a positive
// number of minutes.
func minutesArg(pos int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if pos >= len(args) {
			return nil
		}
		_, err := parseMinutes(args[pos])
		return err
	}
}

func parseMinutes(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: interval %q is not a number", ErrInvalidArgument, s)
	}
	if err := record.ValidateInterval(n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return n, nil
}

// reportf prints a per-FQDN failure. Such failures do not change the
// exit status.
func reportf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: "+format+"\n", args...)
}
