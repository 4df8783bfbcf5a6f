// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/reconciler"
	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// TimeFormat is the layout used for blocked-at timestamps.
const TimeFormat = time.DateTime

// separator frames list and refresh output.
var separator = strings.Repeat("=", 50)

// WriteTable writes records as an aligned table, one row per FQDN.
// Timestamps are shown in loc; a nil loc means local time.
func WriteTable(w io.Writer, records []record.Record, loc *time.Location) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No FQDNs are currently blocked.")
		return err
	}
	if loc == nil {
		loc = time.Local
	}

	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Blocked FQDNs (%d)\n", len(records))
	fmt.Fprintln(w, separator)

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "FQDN\tRULE\tKEYWORD ID\tINTERVAL\tIPS\tBLOCKED AT")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dm\t%s\t%s\n",
			rec.FQDN,
			rec.RuleName,
			rec.KeywordID,
			rec.IntervalMinutes,
			formatIPs(rec.LastResolvedIPs),
			rec.BlockedAt.In(loc).Format(TimeFormat),
		)
	}
	return tw.Flush()
}

func formatIPs(ips []string) string {
	if len(ips) == 0 {
		return "-"
	}
	return strings.Join(ips, ",")
}

// WriteSummary writes one line per FQDN of a refresh pass followed by
// the aggregate counts.
func WriteSummary(w io.Writer, summary reconciler.Summary) error {
	if len(summary.Results) == 0 {
		_, err := fmt.Fprintln(w, "No FQDNs are currently blocked.")
		return err
	}

	for _, r := range summary.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s: failed: %v\n", r.FQDN, r.Err)
		case r.Outcome == reconciler.OutcomeUpdated:
			fmt.Fprintf(w, "%s: IP addresses changed, updated\n", r.FQDN)
		default:
			fmt.Fprintf(w, "%s: no changes detected\n", r.FQDN)
		}
	}

	fmt.Fprintln(w, separator)
	_, err := fmt.Fprintf(w, "Refresh complete: %d successful, %d failed\n", summary.Succeeded, summary.Failed)
	return err
}
