package usage

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodDay, false},
		{"day", PeriodDay, false},
		{"month", PeriodMonth, false},
		{"total", PeriodTotal, false},
		{"week", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePeriod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPeriod_Bounds(t *testing.T) {
	now := time.Date(2024, time.December, 31, 23, 30, 0, 0, time.UTC)

	start, end := PeriodDay.Bounds(now)
	if !start.Equal(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day bounds = %v .. %v", start, end)
	}

	start, end = PeriodMonth.Bounds(now)
	if !start.Equal(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)) ||
		!end.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month bounds = %v .. %v", start, end)
	}

	start, end = PeriodTotal.Bounds(now)
	if !start.IsZero() || !end.IsZero() {
		t.Errorf("total bounds = %v .. %v, want zero", start, end)
	}
}

func TestPeriod_BoundsConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:00 local on the 1st is still the previous day in UTC.
	now := time.Date(2024, time.March, 1, 2, 0, 0, 0, loc)

	start, _ := PeriodDay.Bounds(now)
	if !start.Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
}
