// Package instrument provides the measurement side of the benchmarks: the
// RuntimeData result container and the mark-based instrumentation Runtime
// whose cost those results quantify.
package instrument

import (
	"encoding/json"

	"github.com/nersc/instbench/errors"
)

// One measurement sample.  Index is the sample's position in its
// RuntimeData.
type Sample struct {
	Index      int64
	InstCount  int64
	Timing     float64 // seconds
	InstPerSec float64
	Overhead   float64 // seconds
}

// RuntimeData holds the samples of one benchmark invocation as four
// parallel arrays.  All arrays always have length Entries(), and index i of
// each array refers to the same sample.
//
// A RuntimeData is not safe for concurrent mutation.  Accessors return
// copies, so callers may keep them after further appends.
type RuntimeData struct {
	entries    int64
	instCount  []int64
	timing     []float64
	instPerSec []float64
	overhead   []float64
}

// Returns an empty RuntimeData with room for capacity samples.  Negative
// capacities are treated as zero.
func NewRuntimeData(capacity int64) *RuntimeData {
	if capacity < 0 {
		capacity = 0
	}
	return &RuntimeData{
		instCount:  make([]int64, 0, capacity),
		timing:     make([]float64, 0, capacity),
		instPerSec: make([]float64, 0, capacity),
		overhead:   make([]float64, 0, capacity),
	}
}

// Appends s as the next sample.  s.Index must equal Entries(); samples are
// only ever added in ascending index order.
func (d *RuntimeData) Append(s Sample) error {
	if s.Index != d.entries {
		return errors.Newf(
			"out of order sample: got index %d, expected %d", s.Index, d.entries)
	}
	d.instCount = append(d.instCount, s.InstCount)
	d.timing = append(d.timing, s.Timing)
	d.instPerSec = append(d.instPerSec, s.InstPerSec)
	d.overhead = append(d.overhead, s.Overhead)
	d.entries++
	return nil
}

func (d *RuntimeData) Entries() int64 {
	return d.entries
}

func (d *RuntimeData) InstCount() []int64 {
	return append([]int64(nil), d.instCount...)
}

func (d *RuntimeData) Timing() []float64 {
	return append([]float64(nil), d.timing...)
}

func (d *RuntimeData) InstPerSec() []float64 {
	return append([]float64(nil), d.instPerSec...)
}

func (d *RuntimeData) Overhead() []float64 {
	return append([]float64(nil), d.overhead...)
}

func (d *RuntimeData) Sample(i int64) (Sample, error) {
	if i < 0 || i >= d.entries {
		return Sample{}, errors.Newf(
			"sample index %d out of range [0, %d)", i, d.entries)
	}
	return Sample{
		Index:      i,
		InstCount:  d.instCount[i],
		Timing:     d.timing[i],
		InstPerSec: d.instPerSec[i],
		Overhead:   d.overhead[i],
	}, nil
}

func (d *RuntimeData) Samples() []Sample {
	samples := make([]Sample, d.entries)
	for i := range samples {
		samples[i], _ = d.Sample(int64(i))
	}
	return samples
}

// Checks the parallel array invariant.
func (d *RuntimeData) Validate() error {
	n := d.entries
	if n < 0 {
		return errors.Newf("negative entries: %d", n)
	}
	if int64(len(d.instCount)) != n ||
		int64(len(d.timing)) != n ||
		int64(len(d.instPerSec)) != n ||
		int64(len(d.overhead)) != n {

		return errors.Newf(
			"inconsistent runtime data: entries=%d inst_count=%d timing=%d "+
				"inst_per_sec=%d overhead=%d",
			n, len(d.instCount), len(d.timing), len(d.instPerSec), len(d.overhead))
	}
	return nil
}

type runtimeDataJSON struct {
	Entries    int64     `json:"entries"`
	InstCount  []int64   `json:"inst_count"`
	Timing     []float64 `json:"timing"`
	InstPerSec []float64 `json:"inst_per_sec"`
	Overhead   []float64 `json:"overhead"`
}

func (d *RuntimeData) MarshalJSON() ([]byte, error) {
	return json.Marshal(runtimeDataJSON{
		Entries:    d.entries,
		InstCount:  nonNilInts(d.instCount),
		Timing:     nonNilFloats(d.timing),
		InstPerSec: nonNilFloats(d.instPerSec),
		Overhead:   nonNilFloats(d.overhead),
	})
}

func (d *RuntimeData) UnmarshalJSON(b []byte) error {
	var raw runtimeDataJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return errors.Wrap(err, "decoding runtime data")
	}
	decoded := RuntimeData{
		entries:    raw.Entries,
		instCount:  raw.InstCount,
		timing:     raw.Timing,
		instPerSec: raw.InstPerSec,
		overhead:   raw.Overhead,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*d = decoded
	return nil
}

func nonNilInts(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
