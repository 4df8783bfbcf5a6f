// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package report renders block records and refresh results for people:
// a terminal table for list, a per-FQDN summary for refresh, and an
// Excel workbook for list --xlsx.
package report
