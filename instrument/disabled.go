//go:build noinst

package instrument

const Enabled = false
