package calc

import (
	"math"
	"testing"
	"time"
)

func TestFraction(t *testing.T) {
	tests := []struct {
		name              string
		downloaded, total int64
		want              float64
	}{
		{"total_zero", 10, 0, 0},
		{"total_negative", 10, -1, 0},
		{"zero_downloaded", 0, 100, 0},
		{"half", 50, 100, 0.5},
		{"exact", 100, 100, 1},
		{"over_total_clamped", 150, 100, 1},
		{"negative_downloaded_clamped", -50, 100, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Fraction(tc.downloaded, tc.total); got != tc.want {
				t.Fatalf("Fraction(%d, %d) = %v; want %v", tc.downloaded, tc.total, got, tc.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.1, 0},
		{0.42, 0.42},
		{1.5, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}

	for _, tc := range tests {
		if got := Clamp01(tc.in); got != tc.want {
			t.Errorf("Clamp01(%v) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.3}, 0.3},
		{"half_and_full", []float64{0.5, 1.0}, 0.75},
		{"three", []float64{0, 0.5, 1}, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Mean(tc.values); got != tc.want {
				t.Fatalf("Mean(%v) = %v; want %v", tc.values, got, tc.want)
			}
		})
	}
}

func TestClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{65 * time.Second, "01:05"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{26 * time.Hour, "26:00:00"},
	}

	for _, tc := range tests {
		if got := Clock(tc.in); got != tc.want {
			t.Errorf("Clock(%v) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func approxEqual(a, b, tol time.Duration) bool {
	if a < b {
		return b-a <= tol
	}

	return a-b <= tol
}

func TestETA(t *testing.T) {
	tests := []struct {
		name              string
		downloaded, total int64
		elapsed           time.Duration
		wantOK            bool
	}{
		{"total_zero", 10, 0, time.Second, false},
		{"nothing_downloaded", 0, 100, time.Second, false},
		{"half", 50, 100, 2 * time.Second, true},
		{"quarter", 25, 100, 4 * time.Second, true},
		{"complete", 100, 100, 2 * time.Second, true},
	}

	const tolerance = 50 * time.Millisecond

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			started := time.Now().Add(-tc.elapsed)

			got, ok := ETA(tc.downloaded, tc.total, started)
			if ok != tc.wantOK {
				t.Fatalf("ETA ok = %v; want %v", ok, tc.wantOK)
			}

			if !ok {
				return
			}

			expected := time.Duration(0)
			if tc.downloaded < tc.total {
				expected = time.Duration(float64(tc.elapsed) * (float64(tc.total)/float64(tc.downloaded) - 1))
			}

			if !approxEqual(got, expected, tolerance) {
				t.Fatalf("ETA(%d, %d) = %v; want approx %v", tc.downloaded, tc.total, got, expected)
			}
		})
	}
}

func TestSpeed(t *testing.T) {
	if got := Speed(100, time.Time{}); got != 0 {
		t.Errorf("Speed with zero start = %v; want 0", got)
	}

	got := Speed(2000, time.Now().Add(-2*time.Second))
	if got < 900 || got > 1000 {
		t.Errorf("Speed = %v; want about 1000", got)
	}
}
