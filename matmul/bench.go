package matmul

import (
	"strconv"
	"strings"

	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
	"github.com/nersc/instbench/stats"
	"github.com/nersc/instbench/time2"
)

type BenchParams struct {
	// Defaults to time2.DefaultClock.  Both the sample timings and the
	// instrumentation marks read this clock.
	Clock time2.Clock

	// Defaults to stats.NoOpStatsFactory.
	Stats stats.StatsFactory
}

// Bench runs the instrumented multiplies.  A Bench holds no per-run state
// and may be shared; each Execute call builds its own kernel and runtime.
type Bench struct {
	clock time2.Clock
	stats stats.StatsFactory
}

func NewBench(params BenchParams) *Bench {
	b := &Bench{clock: params.Clock, stats: params.Stats}
	if b.clock == nil {
		b.clock = time2.DefaultClock
	}
	if b.stats == nil {
		b.stats = stats.NoOpStatsFactory
	}
	return b
}

var defaultBench = NewBench(BenchParams{})

// Runs the "c" benchmark with the default clock and no stats.
func ExecuteC(size, max, nitr int64) (CRuntimeData, error) {
	return defaultBench.ExecuteC(size, max, nitr)
}

// Runs the "cxx" benchmark with the default clock and no stats.
func ExecuteCXX(size, max, nitr int64) (*instrument.RuntimeData, error) {
	return defaultBench.ExecuteCXX(size, max, nitr)
}

type multiplier func(g Granularity) error

func (b *Bench) newRuntime(language string) *instrument.Runtime {
	return instrument.NewRuntime(instrument.RuntimeParams{
		Clock: b.clock,
		Stats: b.stats,
		Tags:  map[string]string{"language": language},
	})
}

// Times nitr multiplies at granularity g.
func (b *Bench) timeRuns(mul multiplier, g Granularity, nitr int64) (float64, error) {
	start := b.clock.Now()
	for it := int64(0); it < nitr; it++ {
		if err := mul(g); err != nil {
			return 0, err
		}
	}
	return time2.DurationToFloat(b.clock.Since(start)), nil
}

// Baseline first, then one sample per planned granularity.
func (b *Bench) sweep(
	language string,
	rt *instrument.Runtime,
	mul multiplier,
	size, max, nitr int64,
	record func(instrument.Sample)) error {

	baseline, err := b.timeRuns(mul, granularityNone, nitr)
	if err != nil {
		return errors.Wrapf(err, "%s baseline", language)
	}

	tags := map[string]string{"language": language}
	b.stats.NewGauge("matmul.baseline_seconds", tags).Set(baseline)
	samples := b.stats.NewCounter("matmul.samples", tags)

	for i, g := range Plan(size, max) {
		rt.Reset()
		timing, err := b.timeRuns(mul, g, nitr)
		if err != nil {
			return errors.Wrapf(err, "%s sample %d (%s)", language, i, g)
		}

		count := rt.Count()
		sample := instrument.Sample{
			Index:     int64(i),
			InstCount: count,
			Timing:    timing,
		}
		if timing > 0 {
			sample.InstPerSec = float64(count) / timing
		}
		if timing > baseline {
			sample.Overhead = timing - baseline
		}
		record(sample)

		samples.Inc()
		b.stats.NewSummary("matmul.sample_seconds", map[string]string{
			"language":    language,
			"granularity": g.String(),
		}).Observe(timing)
	}
	return nil
}

func (b *Bench) ExecuteC(size, max, nitr int64) (CRuntimeData, error) {
	var out CRuntimeData
	if err := validate(size, max, nitr); err != nil {
		return out, err
	}

	rt := b.newRuntime("c")
	k := newCKernel(int(size), rt)
	err := b.sweep("c", rt, k.multiply, size, max, nitr, func(s instrument.Sample) {
		out.InstCount[s.Index] = s.InstCount
		out.Timing[s.Index] = s.Timing
		out.InstPerSec[s.Index] = s.InstPerSec
		out.Overhead[s.Index] = s.Overhead
		out.Entries = s.Index + 1
	})
	if err != nil {
		return CRuntimeData{}, err
	}
	return out, nil
}

func (b *Bench) ExecuteCXX(size, max, nitr int64) (*instrument.RuntimeData, error) {
	if err := validate(size, max, nitr); err != nil {
		return nil, err
	}

	rt := b.newRuntime("cxx")
	k := newCXXKernel(int(size), rt)
	data := instrument.NewRuntimeData(int64(len(Plan(size, max))))
	var appendErr error
	err := b.sweep("cxx", rt, k.Mul, size, max, nitr, func(s instrument.Sample) {
		if appendErr == nil {
			appendErr = data.Append(s)
		}
	})
	if err == nil {
		err = appendErr
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Human readable summary of a plan, e.g. "call,row,cell".
func PlanString(size, max int64) string {
	plan := Plan(size, max)
	if len(plan) == 0 {
		return "none (max " + strconv.FormatInt(max, 10) + ")"
	}
	names := make([]string, len(plan))
	for i, g := range plan {
		names[i] = g.String()
	}
	return strings.Join(names, ",")
}
