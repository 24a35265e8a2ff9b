package contracts

import (
	"testing"
	"time"
)

func TestDateRange_Contains(t *testing.T) {
	r := NewDateRange(
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
	)

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"start boundary", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"end boundary", time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC), true},
		{"inside", time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC), true},
		{"before", time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC), false},
		{"after", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), false},
		{"inside with clock time", time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Contains(tt.date); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestDay_Normalizes(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	d := Day(time.Date(2026, 1, 7, 3, 0, 0, 0, loc)) // 2026-01-06 18:00 UTC

	want := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	if !d.Equal(want) {
		t.Errorf("Day() = %v, want %v", d, want)
	}
	if d != want {
		t.Error("normalized days should compare with ==")
	}
}

func TestTimeSeries_At(t *testing.T) {
	ts := TimeSeries{
		Dates: []time.Time{
			time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
		},
		Values: []float64{1.0, 2.0, 3.0},
	}

	if v, ok := ts.At(time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)); !ok || v != 2.0 {
		t.Errorf("At(existing) = %v, %v; want 2.0, true", v, ok)
	}

	// 2026-01-07 is a gap in the series
	if _, ok := ts.At(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)); ok {
		t.Error("At(gap date) should report not found")
	}

	if _, ok := ts.At(time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)); ok {
		t.Error("At(past end) should report not found")
	}
}
