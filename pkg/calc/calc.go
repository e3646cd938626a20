// Package calc provides small arithmetic helpers for progress reporting.
package calc

import (
	"math"
	"time"
)

// Progress calculates the percentage of done out of total.
func Progress(done, total int) int {
	if total > 0 {
		return int(math.Round(float64(done) / float64(total) * 100))
	}

	return 0
}

// ETA estimates the remaining time from the pace observed since started.
func ETA(done, total int, started time.Time) time.Duration {
	if total <= 0 || done <= 0 || done >= total {
		return 0
	}

	elapsed := time.Since(started)
	perItem := float64(elapsed) / float64(done)

	return time.Duration(perItem * float64(total-done)).Round(time.Second)
}
