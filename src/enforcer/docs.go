// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package enforcer is the Enforcement Gateway: it turns "block these
// addresses" into packet-filter state.
//
// A [Gateway] manages two kinds of objects. Address sets are named
// collections of IPv4/IPv6 addresses identified by an opaque id from
// [NewID]. Rules reference a set by id and are addressed by name.
//
// [IPSet] drives the Linux ipset and iptables/ip6tables tools. [Memory]
// keeps everything in process and is used for dry runs and tests.
//
// Errors are sentinel values for use with [errors.Is]:
//
//	var (
//	    ErrSetNotFound    // Unknown address set id
//	    ErrRuleNotFound   // No rule with that name
//	    ErrRuleExists     // Rule name already installed
//	    ErrInvalidAddress // Not an IP literal
//	    ErrInvalidPrefix  // Identifier prefix unusable
//	    ErrCommandFailed  // ipset/iptables returned an error
//	    ErrUnavailable    // Tools missing at Init
//	    ErrUnknownBackend // Unsupported backend name
//	)
package enforcer
