package time2

import "time"

// monoClockEpoch is a completely arbitrary t0.
var monoClockEpoch = time.Now()

// MonoClock returns the number of nanoseconds from an arbitrary epoch fixed
// at process start.  The value has no meaning outside of this process and
// cannot be converted back into a time.Time.  It is only useful for taking
// differences, e.g. when stamping diagnostics emitted during a benchmark.
func MonoClock() int64 {
	return time.Since(monoClockEpoch).Nanoseconds()
}
