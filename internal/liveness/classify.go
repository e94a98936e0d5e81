// Package liveness decides whether a bus counts as actively reporting.
// The classification itself is a pure function; the Monitor re-evaluates it
// on a timer because activity can flip to false purely from elapsed time.
package liveness

import "time"

// Classify reports whether a bus is active. A bus is active only while it
// is assigned to a driver, has reported at least once, and its last report
// is younger than the recency window. The upper boundary is exclusive: a
// report exactly window old is already inactive.
func Classify(assigned bool, lastReport time.Time, hasReport bool, now time.Time, window time.Duration) bool {
	if !assigned || !hasReport {
		return false
	}
	return now.Sub(lastReport) < window
}
