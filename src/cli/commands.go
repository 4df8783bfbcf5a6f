// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/reconciler"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/report"
)

func newBlockCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "block <fqdn> [interval]",
		Short: "Block an FQDN, refreshing it every interval minutes",
		Example: `  fqdnblock block example.com
  fqdnblock block example.com 30`,
		Args: cobra.MatchAll(cobra.RangeArgs(1, 2), minutesArg(1)),
		RunE: s.run(func(cmd *cobra.Command, app *App, args []string) error {
			interval := app.Config.DefaultInterval
			if len(args) == 2 {
				interval, _ = parseMinutes(args[1])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Blocking %s, refresh every %d minutes\n", args[0], interval)

			rec, err := app.Engine.Block(cmd.Context(), args[0], interval)
			if err != nil {
				reportf(cmd, "block %s: %v", args[0], err)
				return nil
			}

			fmt.Fprintf(out, "Successfully blocked %s\n", rec.FQDN)
			fmt.Fprintf(out, "Resolved to %d IP address(es):\n", len(rec.LastResolvedIPs))
			for _, ip := range rec.LastResolvedIPs {
				fmt.Fprintf(out, "  - %s\n", ip)
			}
			return nil
		}),
	}
}

func newRefreshCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-resolve every blocked FQDN now",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, app *App, _ []string) error {
			summary, err := app.Engine.RefreshAll(cmd.Context())
			if err != nil {
				reportf(cmd, "refresh: %v", err)
				return nil
			}
			return report.WriteSummary(cmd.OutOrStdout(), summary)
		}),
	}
}

func newListCommand(s *settings) *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blocked FQDNs",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, app *App, _ []string) error {
			records, err := app.Store.List()
			if err != nil {
				reportf(cmd, "list: %v", err)
				return nil
			}

			if err := report.WriteTable(cmd.OutOrStdout(), records, time.Local); err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := report.WriteXLSX(xlsxPath, records, time.Local); err != nil {
					reportf(cmd, "export: %v", err)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", len(records), xlsxPath)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also export the list to this Excel file")
	return cmd
}

func newRemoveCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <fqdn>",
		Short: "Stop blocking an FQDN and delete its rule and address set",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, app *App, args []string) error {
			if err := app.Engine.Remove(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, record.ErrNotFound) {
					reportf(cmd, "%s is not in the blocked list", args[0])
					return nil
				}
				reportf(cmd, "remove %s: %v", args[0], err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed block for %s\n", args[0])
			return nil
		}),
	}
}

func newSetIntervalCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "set-interval <minutes>",
		Short: "Set the default refresh interval used by block",
		Args:  cobra.MatchAll(cobra.ExactArgs(1), minutesArg(0)),
		RunE: s.run(func(cmd *cobra.Command, app *App, args []string) error {
			interval, _ := parseMinutes(args[0])

			app.Config.DefaultInterval = interval
			if err := app.Config.Save(app.ConfigPath); err != nil {
				reportf(cmd, "set-interval: %v", err)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default refresh interval set to %d minutes\n", interval)
			return nil
		}),
	}
}

func newStatusCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resolver health and the refresh schedule",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, app *App, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Enforcement backend: %s\n", app.Config.Enforcer.Backend)
			fmt.Fprintf(out, "Record store: %s (%s)\n", app.Config.StorePath(), app.Config.Store.Backend)

			tw := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
			if app.dns == nil {
				fmt.Fprintln(out, "Resolver: system")
			} else {
				statuses, err := app.dns.Status(cmd.Context())
				if err != nil {
					reportf(cmd, "resolver status: %v", err)
				}
				fmt.Fprintln(out, "Resolver: dns")
				fmt.Fprintln(tw, "SERVER\tONLINE\tLATENCY")
				for _, st := range statuses {
					fmt.Fprintf(tw, "%s\t%t\t%dms\n", st.Server, st.Online, st.LatencyMs)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			writeWatches(cmd, app.Engine.Watches())
			return nil
		}),
	}
}

func writeWatches(cmd *cobra.Command, watches []reconciler.Watch) {
	out := cmd.OutOrStdout()
	if len(watches) == 0 {
		fmt.Fprintln(out, "No FQDNs are scheduled.")
		return
	}

	tw := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "FQDN\tINTERVAL\tNEXT RUN")
	for _, w := range watches {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", w.FQDN, w.Interval, w.NextRun.Local().Format(report.TimeFormat))
	}
	_ = tw.Flush()
}

func newRunCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler in the foreground",
		Long: `Run hydrates every stored record and keeps reconciling them until
SIGINT or SIGTERM. SIGHUP reloads the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := open(cmd.Context(), s)
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Scheduler running for %d watch(es). Press Ctrl+C to stop.\n",
				app.Engine.WatchCount())
			return app.Serve(cmd.Context(), s.hangup)
		},
	}
}
