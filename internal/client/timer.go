package client

import (
	"fmt"
	"time"
)

// Remaining derives the seconds left on an attempt from wall-clock arithmetic
// alone: duration minus elapsed-since-start, clamped at zero. There is no
// decrementing counter anywhere; a backgrounded or killed process recomputes
// the identical value the moment it asks again, so pausing the UI can never
// buy time.
func Remaining(startedAt time.Time, durationMins int, now time.Time) int {
	elapsed := int(now.Sub(startedAt).Seconds())
	remaining := durationMins*60 - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatClock renders seconds as M:SS for display.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// TimeState classifies the remaining time for display emphasis: "critical"
// under 20% of the duration, "warning" under 50%, otherwise "normal".
func TimeState(remaining, durationMins int) string {
	total := durationMins * 60
	switch {
	case total <= 0 || remaining*5 <= total:
		return "critical"
	case remaining*2 <= total:
		return "warning"
	default:
		return "normal"
	}
}
