// Package timeutil centralizes monotonic-to-wall-clock time conversions so
// every event timestamp is derived the same way.
package timeutil

import (
	"math"
	"time"
)

// EpochToISOUTC renders a Unix epoch (seconds, fractional) as an ISO-8601 UTC
// timestamp with millisecond precision.
func EpochToISOUTC(epochSeconds float64) string {
	sec := int64(epochSeconds)
	usec := int64(math.Round((epochSeconds - float64(sec)) * 1e6))
	return time.Unix(sec, usec*int64(time.Microsecond)).UTC().Format("2006-01-02T15:04:05.000Z")
}

// NowISOUTC returns the current wall-clock time as an ISO-8601 UTC string.
func NowISOUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// MonotonicOffsetToEpoch converts a duration offset from a session's
// monotonic start into the corresponding wall-clock epoch time, using the
// wall-clock epoch captured at session creation.
func MonotonicOffsetToEpoch(sessionWallClockStart time.Time, offset time.Duration) time.Time {
	return sessionWallClockStart.Add(offset)
}
