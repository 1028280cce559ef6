package time2

import "time"

// Return the time as a float64, ala Python's time.time().
func NowFloat() float64 {
	return TimeToFloat(time.Now())
}

// Convert Time to epoch seconds with subsecond precision.
func TimeToFloat(t time.Time) float64 {
	return float64(t.Unix()) + (float64(t.Nanosecond()) / 1e9)
}

// Convert epoch seconds back into a Time.  Precision is limited to what a
// float64 can carry, roughly a microsecond for present-day dates.
func FloatToTime(f float64) time.Time {
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Seconds in d as a float64.  Benchmark timings are reported in seconds.
func DurationToFloat(d time.Duration) float64 {
	return d.Seconds()
}
