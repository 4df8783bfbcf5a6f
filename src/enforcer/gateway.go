// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import (
	"context"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Backend names accepted by configuration.
const (
	BackendIPSet  = "ipset"
	BackendMemory = "memory"
)

// DefaultPrefix is prepended to every generated address-set identifier.
const DefaultPrefix = "fqdnb"

// maxPrefixLength keeps "<prefix>-<12 hex>-4t" within ipset's
// 31-character set name limit.
const maxPrefixLength = 15

var prefixPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Gateway materializes named address sets and the rules that reference
// them in the packet-filtering layer.
//
// Implementations must be safe for concurrent use.
type Gateway interface {
	// CreateAddressSet creates a new address set holding ips and returns
	// its identifier. name is descriptive only.
	CreateAddressSet(ctx context.Context, name string, ips []string) (string, error)

	// UpdateAddressSet replaces the full contents of the set id with ips.
	UpdateAddressSet(ctx context.Context, id string, ips []string) error

	// DeleteAddressSet removes the set id.
	DeleteAddressSet(ctx context.Context, id string) error

	// CreateRule installs a rule named ruleName matching the set id.
	CreateRule(ctx context.Context, ruleName, id string, dir Direction, action Action) error

	// DeleteRule removes every rule named ruleName.
	DeleteRule(ctx context.Context, ruleName string) error
}

// ValidatePrefix reports whether prefix can start an address-set name.
func ValidatePrefix(prefix string) error {
	if len(prefix) == 0 || len(prefix) > maxPrefixLength || !prefixPattern.MatchString(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	return nil
}

// NewID returns a fresh address-set identifier of the form
// "<prefix>-<12 hex digits>".
func NewID(prefix string) string {
	id := uuid.New()
	return prefix + "-" + strings.ReplaceAll(id.String(), "-", "")[:12]
}

// splitFamilies validates ips and partitions them by address family.
// Duplicates are dropped.
func splitFamilies(ips []string) (v4, v6 []string, err error) {
	seen := make(map[netip.Addr]struct{}, len(ips))
	for _, s := range ips {
		addr, perr := netip.ParseAddr(strings.TrimSpace(s))
		if perr != nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		addr = addr.Unmap().WithZone("")
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		if addr.Is4() {
			v4 = append(v4, addr.String())
		} else {
			v6 = append(v6, addr.String())
		}
	}
	return v4, v6, nil
}
