// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// maxDomainLength is the longest presentation-format name DNS allows.
const maxDomainLength = 253

// IsValidDomain reports whether domain is a syntactically valid ASCII
// domain name.
//
// A valid domain must have at least two labels separated by dots,
// each label must be 1-63 characters long, contain only ASCII
// letters, digits, or hyphens, and must not start or end with a hyphen.
// The TLD (last label) must contain only letters, unless it is an
// IDNA A-label ("xn--").
func IsValidDomain(domain string) bool {
	if domain == "" || len(domain) > maxDomainLength {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}

	for i, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}

		// Labels must not start or end with a hyphen.
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}

		isTLD := i == len(labels)-1
		punycode := strings.HasPrefix(label, "xn--")
		if isTLD && len(label) < 2 {
			return false
		}

		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z':
				// ok
			case c >= 'A' && c <= 'Z':
				// ok
			case c >= '0' && c <= '9', c == '-':
				if isTLD && !punycode {
					return false // TLD must be letters only.
				}
			default:
				return false
			}
		}
	}

	return true
}

// Normalize returns the canonical lookup form of fqdn: whitespace and
// a trailing root dot removed, lowercased, and converted to its ASCII
// (punycode) form. It returns [ErrInvalidDomain] when the result is not
// a valid domain name.
func Normalize(fqdn string) (string, error) {
	name := strings.TrimSuffix(strings.TrimSpace(fqdn), ".")

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDomain, fqdn, err)
	}
	ascii = strings.ToLower(ascii)

	if !IsValidDomain(ascii) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, fqdn)
	}
	return ascii, nil
}
