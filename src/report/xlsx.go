// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/H0llyW00dzZ/fqdn-blocker/src/record"
)

// SheetName is the worksheet written by [WriteXLSX].
const SheetName = "Blocked FQDNs"

var xlsxHeader = []any{"FQDN", "Rule Name", "Keyword ID", "Interval (minutes)", "IP Addresses", "Blocked At"}

// WriteXLSX saves records as an Excel workbook at path with a header
// row and one row per FQDN. IP addresses share one cell, one per line.
func WriteXLSX(path string, records []record.Record, loc *time.Location) (err error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("report: close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		row := []any{
			rec.FQDN,
			rec.RuleName,
			rec.KeywordID,
			rec.IntervalMinutes,
			strings.Join(rec.LastResolvedIPs, "\n"),
			rec.BlockedAt.In(loc).Format(TimeFormat),
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}

	if err := f.SetColWidth(SheetName, "A", "F", 24); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
