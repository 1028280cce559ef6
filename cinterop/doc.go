// Package cinterop lets a program written in another language (a C
// harness, a Python driver) run the matmul benchmarks in a Go process.
//
// The host starts the Go binary and reads three lines from its stdout:
//
//	instbench-cinterop-v1
//	/tmp/instbench-<random>.sock
//	<32 hex digit token>
//
// It then either keeps talking over the child's stdin/stdout or connects
// to the unix socket and writes the token first.  Every message in either
// direction is a varint length prefixed protobuf (see package wire): the
// host sends a Request and receives a Response carrying the RuntimeData or,
// for rejected requests, no data and the diagnostic text.
package cinterop
