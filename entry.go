package timeindex

import (
	"math"
	"time"
)

// Entry is one timestamped value held by a Store.
type Entry[T any] struct {
	// Timestamp is seconds since the Unix epoch with sub-second precision.
	Timestamp float64
	Value     T
}

// Time returns the entry timestamp as a UTC time.
func (e Entry[T]) Time() time.Time {
	return FromSeconds(e.Timestamp)
}

// Seconds converts a wall-clock instant to the float timestamp used by the
// store.
func Seconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// FromSeconds converts a float timestamp to a UTC time, rounded to the
// nearest microsecond.
func FromSeconds(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	usec := math.Round(frac * 1e6)
	return time.Unix(int64(sec), int64(usec)*int64(time.Microsecond)).UTC()
}
