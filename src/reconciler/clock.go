// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package reconciler

import "time"

// Clock supplies the current time. Values returned by the default clock
// carry a monotonic reading, so schedule comparisons are immune to wall
// clock adjustments.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
