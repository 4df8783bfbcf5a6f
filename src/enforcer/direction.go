// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package enforcer

import (
	"fmt"
	"strings"
)

// Direction selects which traffic a rule applies to.
type Direction int

const (
	// Outbound matches traffic leaving the host towards the set.
	Outbound Direction = iota
	// Inbound matches traffic arriving from the set.
	Inbound
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection converts "outbound"/"out" or "inbound"/"in"
// (case-insensitive) to a [Direction].
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound", "out":
		return Outbound, nil
	case "inbound", "in":
		return Inbound, nil
	default:
		return 0, fmt.Errorf("enforcer: unknown direction %q", s)
	}
}

// Action is what a rule does with matching traffic.
type Action int

const (
	// Block drops matching traffic.
	Block Action = iota
	// Allow accepts matching traffic.
	Allow
)

func (a Action) String() string {
	switch a {
	case Block:
		return "block"
	case Allow:
		return "allow"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction converts "block"/"drop" or "allow"/"accept"
// (case-insensitive) to an [Action].
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "drop":
		return Block, nil
	case "allow", "accept":
		return Allow, nil
	default:
		return 0, fmt.Errorf("enforcer: unknown action %q", s)
	}
}
