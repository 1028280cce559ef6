//go:build !noinst

package instrument

// Whether marks are recorded.  Build with -tags noinst to compile them out.
const Enabled = true
