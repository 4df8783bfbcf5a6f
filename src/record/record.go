// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package record

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// MaxIntervalMinutes is the longest interval whose duration still fits
// in a [time.Duration].
const MaxIntervalMinutes = int64(math.MaxInt64 / time.Minute)

// ValidateInterval reports whether minutes is a usable re-check cadence.
func ValidateInterval(minutes int) error {
	if minutes <= 0 || int64(minutes) > MaxIntervalMinutes {
		return fmt.Errorf("%w: interval must be between 1 and %d minutes, got %d",
			ErrInvalidRecord, MaxIntervalMinutes, minutes)
	}
	return nil
}

// Record is the durable entry describing one blocked FQDN and the
// enforcement objects bound to it.
//
// Only LastResolvedIPs changes after creation.
type Record struct {
	// FQDN is the blocked domain name and the unique key of the store.
	FQDN string

	// KeywordID names the enforcement layer's address set for FQDN.
	KeywordID string

	// RuleName names the enforcement rule referencing KeywordID.
	RuleName string

	// BlockedAt is the time of the first successful block, in UTC
	// with second precision.
	BlockedAt time.Time

	// LastResolvedIPs is the IP set last pushed to the enforcement layer.
	LastResolvedIPs []string

	// IntervalMinutes is the desired re-check cadence.
	IntervalMinutes int
}

// New builds a Record stamped with the current time.
func New(fqdn, keywordID, ruleName string, ips []string, intervalMinutes int) Record {
	return Record{
		FQDN:            fqdn,
		KeywordID:       keywordID,
		RuleName:        ruleName,
		BlockedAt:       time.Now(),
		LastResolvedIPs: ips,
		IntervalMinutes: intervalMinutes,
	}.Normalize()
}

// Normalize returns a copy of r in the form the stores persist:
// BlockedAt in UTC truncated to the second and a non-nil IP list.
// Stores normalize on Add, so Get returns what Normalize returns.
func (r Record) Normalize() Record {
	r.BlockedAt = r.BlockedAt.UTC().Truncate(time.Second)
	if r.LastResolvedIPs == nil {
		r.LastResolvedIPs = []string{}
	} else {
		r.LastResolvedIPs = slices.Clone(r.LastResolvedIPs)
	}
	return r
}

// Validate reports whether r satisfies the Block Record invariants.
func (r Record) Validate() error {
	switch {
	case r.FQDN == "":
		return fmt.Errorf("%w: empty fqdn", ErrInvalidRecord)
	case r.KeywordID == "":
		return fmt.Errorf("%w: empty keyword id for %s", ErrInvalidRecord, r.FQDN)
	case r.RuleName == "":
		return fmt.Errorf("%w: empty rule name for %s", ErrInvalidRecord, r.FQDN)
	}
	if err := ValidateInterval(r.IntervalMinutes); err != nil {
		return fmt.Errorf("%w (%s)", err, r.FQDN)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.LastResolvedIPs = slices.Clone(r.LastResolvedIPs)
	return r
}

// Interval returns the re-check cadence as a duration.
func (r Record) Interval() time.Duration {
	return time.Duration(r.IntervalMinutes) * time.Minute
}

// fileRecord is the on-disk shape shared with earlier releases of the
// store file: camelCase keys and a unix timestamp.
type fileRecord struct {
	FQDN            string   `json:"fqdn"`
	KeywordID       string   `json:"keywordId"`
	RuleName        string   `json:"ruleName"`
	BlockedAt       int64    `json:"blockedAt"`
	Interval        int      `json:"interval"`
	LastResolvedIPs []string `json:"lastResolvedIPs"`
}

func toFileRecord(r Record) fileRecord {
	ips := r.LastResolvedIPs
	if ips == nil {
		ips = []string{}
	}
	return fileRecord{
		FQDN:            r.FQDN,
		KeywordID:       r.KeywordID,
		RuleName:        r.RuleName,
		BlockedAt:       r.BlockedAt.Unix(),
		Interval:        r.IntervalMinutes,
		LastResolvedIPs: ips,
	}
}

func fromFileRecord(f fileRecord) Record {
	return Record{
		FQDN:            f.FQDN,
		KeywordID:       f.KeywordID,
		RuleName:        f.RuleName,
		BlockedAt:       time.Unix(f.BlockedAt, 0),
		LastResolvedIPs: f.LastResolvedIPs,
		IntervalMinutes: f.Interval,
	}.Normalize()
}
