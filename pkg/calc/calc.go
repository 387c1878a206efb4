// Package calc holds small numeric helpers for progress reporting.
package calc

import (
	"fmt"
	"math"
	"time"
)

// Clamp01 limits f to [0, 1]. NaN becomes 0.
func Clamp01(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// Fraction returns downloaded/total clamped to [0, 1], or 0 when total is unknown.
func Fraction(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return Clamp01(float64(downloaded) / float64(total))
}

// Mean returns the arithmetic mean of values, or 0 when empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// ETA estimates the remaining time from the elapsed time since started.
// ok is false when the estimate cannot be made.
func ETA(downloaded, total int64, started time.Time) (eta time.Duration, ok bool) {
	if total <= 0 || downloaded <= 0 || started.IsZero() {
		return 0, false
	}

	if downloaded >= total {
		return 0, true
	}

	elapsed := time.Since(started)

	return time.Duration(float64(elapsed) * (float64(total)/float64(downloaded) - 1)), true
}

// Speed returns the average rate in bytes per second since started.
func Speed(downloaded int64, started time.Time) float64 {
	elapsed := time.Since(started).Seconds()
	if started.IsZero() || elapsed <= 0 || downloaded <= 0 {
		return 0
	}

	return float64(downloaded) / elapsed
}

// Clock formats d as MM:SS, or HH:MM:SS from one hour up.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d.Round(time.Second) / time.Second)
	hours, minutes, seconds := total/3600, (total%3600)/60, total%60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
