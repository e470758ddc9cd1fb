package types

import "time"

// timeNow is the clock used for entity timestamps; tests may replace it.
var timeNow = time.Now

// SetClock replaces the timestamp clock and returns a function restoring the
// previous one.
func SetClock(now func() time.Time) (restore func()) {
	prev := timeNow
	timeNow = now
	return func() { timeNow = prev }
}

// NowMillis returns the current time in milliseconds since the Unix epoch.
func NowMillis() int64 {
	return timeNow().UnixMilli()
}
