// Package matmul implements the two instrumented matrix-multiply
// microbenchmarks, "c" and "cxx".
//
// Both multiply two dense square float64 matrices of order size with
// deterministic contents.  Each invocation first times nitr uninstrumented
// multiplies (the baseline) and then sweeps the instrumentation granularity
// from coarse to fine:
//
//	PerCall  1 mark per multiply
//	PerRow   size marks per multiply
//	PerCell  size^2 marks per multiply
//	PerTerm  size^3 marks per multiply
//
// stopping before the first granularity whose marks per multiply exceed
// the max argument.  Every granularity that fits yields one sample:
//
//	inst_count   = marks recorded over nitr multiplies
//	timing       = seconds for those nitr multiplies
//	inst_per_sec = inst_count / timing (0 when timing is 0)
//	overhead     = max(0, timing - baseline) seconds
//
// The number of samples and their inst_count therefore depend only on
// size, max and nitr.  The "c" kernel works on flat slices with explicit
// Begin/End marks and reports a fixed-capacity CRuntimeData.  The "cxx"
// kernel works on a Matrix type with scoped marks and reports an
// instrument.RuntimeData directly.
package matmul
