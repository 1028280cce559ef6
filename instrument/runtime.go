package instrument

import (
	"time"

	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/stats"
	"github.com/nersc/instbench/time2"
)

// Identifies an instrumented region.  Ids are dense, starting at zero, and
// are handed out by Runtime.Region.
type RegionID int

// Accumulated measurements for one region.
type RegionRecord struct {
	Name  string
	Calls int64
	Total time.Duration
}

type frame struct {
	region RegionID
	start  time.Time
}

type RuntimeParams struct {
	// Defaults to time2.DefaultClock.
	Clock time2.Clock

	// Defaults to stats.NoOpStatsFactory.
	Stats stats.StatsFactory

	// Added to every stat the runtime creates, e.g. {"language": "c"}.
	Tags map[string]string
}

// Runtime records push/pop instrumentation marks.  Every Begin/End pair
// counts as one mark, charges the elapsed time to its region and reads the
// clock twice; that per-mark cost is what the benchmarks call overhead.
//
// A Runtime is not safe for concurrent use.  Each benchmark invocation owns
// one.
type Runtime struct {
	clock time2.Clock

	regions []RegionRecord
	byName  map[string]RegionID
	stack   []frame
	count   int64

	statsFactory stats.StatsFactory
	tags         map[string]string
	marks        stats.CounterStat
	regionTime   []stats.SummaryStat
}

func NewRuntime(params RuntimeParams) *Runtime {
	clock := params.Clock
	if clock == nil {
		clock = time2.DefaultClock
	}
	factory := params.Stats
	if factory == nil {
		factory = stats.NoOpStatsFactory
	}
	return &Runtime{
		clock:        clock,
		byName:       make(map[string]RegionID),
		statsFactory: factory,
		tags:         params.Tags,
		marks:        factory.NewCounter("instrument.marks", params.Tags),
	}
}

// Returns the id for the named region, registering it on first use.
func (r *Runtime) Region(name string) RegionID {
	if id, ok := r.byName[name]; ok {
		return id
	}
	id := RegionID(len(r.regions))
	r.regions = append(r.regions, RegionRecord{Name: name})
	r.byName[name] = id

	tags := make(map[string]string, len(r.tags)+1)
	for k, v := range r.tags {
		tags[k] = v
	}
	tags["region"] = name
	r.regionTime = append(
		r.regionTime,
		r.statsFactory.NewSummary("instrument.region_seconds", tags))
	return id
}

// Opens a mark for region id.
func (r *Runtime) Begin(id RegionID) {
	if !Enabled {
		return
	}
	r.stack = append(r.stack, frame{region: id, start: r.clock.Now()})
}

// Closes the innermost open mark, which must belong to region id.
func (r *Runtime) End(id RegionID) error {
	if !Enabled {
		return nil
	}
	n := len(r.stack)
	if n == 0 {
		return errors.Newf("end of region %d without a matching begin", id)
	}
	top := r.stack[n-1]
	if top.region != id {
		return errors.Newf(
			"unbalanced marks: ending region %d while region %d is open",
			id, top.region)
	}
	if int(id) < 0 || int(id) >= len(r.regions) {
		return errors.Newf("unknown region %d", id)
	}
	elapsed := r.clock.Now().Sub(top.start)
	r.stack = r.stack[:n-1]

	rec := &r.regions[id]
	rec.Calls++
	rec.Total += elapsed
	r.count++
	r.marks.Inc()
	r.regionTime[id].Observe(elapsed.Seconds())
	return nil
}

// Scope is a mark that is closed with Close, for callers who prefer
// structured begin/end pairs.
type Scope struct {
	rt *Runtime
	id RegionID
}

func (r *Runtime) Scope(id RegionID) Scope {
	r.Begin(id)
	return Scope{rt: r, id: id}
}

func (s Scope) Close() error {
	return s.rt.End(s.id)
}

// Number of completed marks since creation or the last Reset.
func (r *Runtime) Count() int64 {
	return r.count
}

// Number of marks currently open.
func (r *Runtime) Depth() int {
	return len(r.stack)
}

// Snapshot of every region in registration order.
func (r *Runtime) Regions() []RegionRecord {
	return append([]RegionRecord(nil), r.regions...)
}

// Clears counts, timings and open marks.  Registered region ids stay valid.
func (r *Runtime) Reset() {
	for i := range r.regions {
		r.regions[i].Calls = 0
		r.regions[i].Total = 0
	}
	r.stack = r.stack[:0]
	r.count = 0
}

func (r *Runtime) Clock() time2.Clock {
	return r.clock
}
