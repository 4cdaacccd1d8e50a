package patience

import (
	"fmt"
	"math"
	"time"
)

const secondsPerDay = 86400.0

// FormatRateAndETA renders the "{rate}, {eta}" progress string spec.md §4.8
// describes, given when the download started, the current time, bytes
// received so far, and the total bytes expected.
//
// A clock regression (now before start) falls back to the literal
// "?????????", matching the original implementation's behavior for that
// case.
func FormatRateAndETA(start, now time.Time, gotSoFar, totalToGet uint64) string {
	if start.After(now) {
		return "?????????"
	}
	timeSoFar := now.Sub(start).Seconds()
	if timeSoFar < 1.0 || gotSoFar >= totalToGet {
		return "..."
	}
	bytesPerSecond := float64(gotSoFar) / timeSoFar
	remainingSeconds := float64(totalToGet-gotSoFar) / bytesPerSecond

	var eta string
	if remainingSeconds >= 100000.0 {
		numDays := uint64(math.Floor(remainingSeconds / secondsPerDay))
		if numDays == 1 {
			eta = "over a day left"
		} else {
			eta = fmt.Sprintf("over %d days left", numDays)
		}
	} else {
		seconds := uint32(math.Floor(remainingSeconds))
		eta = fmt.Sprintf("%d:%02d:%02d left", seconds/60/60, (seconds/60)%60, seconds%60)
	}

	var rate string
	switch {
	case bytesPerSecond > 1000000000.0:
		rate = "Wow!"
	case bytesPerSecond > 800000.0:
		rate = fmt.Sprintf("%.1fMB/s", bytesPerSecond/1000000.0)
	case bytesPerSecond > 800.0:
		rate = fmt.Sprintf("%.1fkB/s", bytesPerSecond/1000.0)
	default:
		rate = fmt.Sprintf("%.1fB/s", bytesPerSecond)
	}
	return fmt.Sprintf("%s, %s", rate, eta)
}
