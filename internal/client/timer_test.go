package client

import (
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		elapsed      time.Duration
		durationMins int
		want         int
	}{
		{"at start", 0, 60, 3600},
		{"one minute in", time.Minute, 60, 3540},
		{"last second", 3599 * time.Second, 60, 1},
		{"exactly expired", time.Hour, 60, 0},
		{"past expiry clamps to zero", 3601 * time.Second, 60, 0},
		{"hours past expiry", 5 * time.Hour, 60, 0},
		{"short test", 90 * time.Second, 5, 210},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remaining(start, tt.durationMins, start.Add(tt.elapsed))
			if got != tt.want {
				t.Errorf("Remaining(+%v, %dm) = %d, want %d", tt.elapsed, tt.durationMins, got, tt.want)
			}
		})
	}
}

func TestRemaining_StatelessAcrossCalls(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	at := start.Add(17 * time.Minute)
	first := Remaining(start, 60, at)
	// Asking again later with the same inputs yields the same answer: there is
	// no counter that a paused process could have frozen.
	second := Remaining(start, 60, at)
	if first != second {
		t.Fatalf("same inputs gave %d then %d", first, second)
	}
	later := Remaining(start, 60, at.Add(10*time.Minute))
	if later != first-600 {
		t.Fatalf("10 minutes later expected %d, got %d", first-600, later)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{59, "0:59"},
		{60, "1:00"},
		{605, "10:05"},
		{3600, "60:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTimeState(t *testing.T) {
	tests := []struct {
		name         string
		remaining    int
		durationMins int
		want         string
	}{
		{"full time", 3600, 60, "normal"},
		{"just over half", 1801, 60, "normal"},
		{"exactly half", 1800, 60, "warning"},
		{"just over fifth", 721, 60, "warning"},
		{"exactly fifth", 720, 60, "critical"},
		{"expired", 0, 60, "critical"},
		{"zero duration", 100, 0, "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeState(tt.remaining, tt.durationMins); got != tt.want {
				t.Errorf("TimeState(%d, %d) = %q, want %q", tt.remaining, tt.durationMins, got, tt.want)
			}
		})
	}
}
