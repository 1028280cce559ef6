package instrument

import (
	"encoding/json"
	"testing"
	"time"

	. "gopkg.in/check.v1"

	. "github.com/nersc/instbench/gocheck2"
	"github.com/nersc/instbench/stats"
	"github.com/nersc/instbench/time2"
)

func Test(t *testing.T) {
	TestingT(t)
}

type RuntimeDataSuite struct{}

var _ = Suite(&RuntimeDataSuite{})

func (s *RuntimeDataSuite) TestAppendInOrder(c *C) {
	d := NewRuntimeData(2)
	c.Assert(d, HasEntries, 0)

	c.Assert(d.Append(Sample{Index: 0, InstCount: 1, Timing: 0.5, InstPerSec: 2, Overhead: 0.1}), IsNil)
	c.Assert(d.Append(Sample{Index: 1, InstCount: 100, Timing: 1, InstPerSec: 100, Overhead: 0.2}), IsNil)
	// Growing past the initial capacity is fine.
	c.Assert(d.Append(Sample{Index: 2, InstCount: 10000, Timing: 2, InstPerSec: 5000, Overhead: 1}), IsNil)

	c.Assert(d, HasEntries, 3)
	c.Assert(d.InstCount(), DeepEquals, []int64{1, 100, 10000})
	c.Assert(d.Timing(), DeepEquals, []float64{0.5, 1, 2})
	c.Assert(d.InstPerSec(), DeepEquals, []float64{2, 100, 5000})
	c.Assert(d.Overhead(), DeepEquals, []float64{0.1, 0.2, 1})

	sample, err := d.Sample(1)
	c.Assert(err, IsNil)
	c.Assert(sample, Equals, Sample{Index: 1, InstCount: 100, Timing: 1, InstPerSec: 100, Overhead: 0.2})
	c.Assert(d.Samples(), HasLen, 3)
}

func (s *RuntimeDataSuite) TestAppendOutOfOrder(c *C) {
	d := NewRuntimeData(0)
	c.Assert(d.Append(Sample{Index: 1}), ErrorMatches, "(?s)out of order sample: got index 1, expected 0.*")
	c.Assert(d, HasEntries, 0)
}

func (s *RuntimeDataSuite) TestSampleOutOfRange(c *C) {
	d := NewRuntimeData(-5)
	_, err := d.Sample(0)
	c.Assert(err, NotNil)
	_, err = d.Sample(-1)
	c.Assert(err, NotNil)
}

func (s *RuntimeDataSuite) TestAccessorsReturnCopies(c *C) {
	d := NewRuntimeData(1)
	c.Assert(d.Append(Sample{Index: 0, InstCount: 7}), IsNil)
	counts := d.InstCount()
	counts[0] = 99
	c.Assert(d.InstCount()[0], Equals, int64(7))
}

func (s *RuntimeDataSuite) TestJSON(c *C) {
	d := NewRuntimeData(1)
	c.Assert(d.Append(Sample{Index: 0, InstCount: 3, Timing: 1.5, InstPerSec: 2, Overhead: 0.25}), IsNil)

	b, err := json.Marshal(d)
	c.Assert(err, IsNil)
	c.Assert(string(b), Equals,
		`{"entries":1,"inst_count":[3],"timing":[1.5],"inst_per_sec":[2],"overhead":[0.25]}`)

	empty, err := json.Marshal(NewRuntimeData(0))
	c.Assert(err, IsNil)
	c.Assert(string(empty), Equals,
		`{"entries":0,"inst_count":[],"timing":[],"inst_per_sec":[],"overhead":[]}`)

	var decoded RuntimeData
	c.Assert(json.Unmarshal(b, &decoded), IsNil)
	c.Assert(&decoded, HasEntries, 1)
	c.Assert(decoded.Samples(), DeepEquals, d.Samples())

	bad := `{"entries":2,"inst_count":[1],"timing":[1],"inst_per_sec":[1],"overhead":[1]}`
	c.Assert(json.Unmarshal([]byte(bad), &decoded), ErrorMatches, "(?s)inconsistent runtime data.*")
}

type RuntimeSuite struct{}

var _ = Suite(&RuntimeSuite{})

func (s *RuntimeSuite) TestMarksAndRegions(c *C) {
	if !Enabled {
		c.Skip("instrumentation compiled out")
	}
	clock := time2.NewStepClock(time.Millisecond)
	factory := stats.NewMemoryFactory()
	rt := NewRuntime(RuntimeParams{
		Clock: clock,
		Stats: factory,
		Tags:  map[string]string{"language": "c"},
	})

	outer := rt.Region("multiply")
	inner := rt.Region("row")
	c.Assert(rt.Region("multiply"), Equals, outer)

	rt.Begin(outer)
	for i := 0; i < 3; i++ {
		rt.Begin(inner)
		c.Assert(rt.Depth(), Equals, 2)
		c.Assert(rt.End(inner), IsNil)
	}
	c.Assert(rt.End(outer), IsNil)

	c.Assert(rt.Count(), Equals, int64(4))
	c.Assert(rt.Depth(), Equals, 0)

	regions := rt.Regions()
	c.Assert(regions, HasLen, 2)
	c.Assert(regions[0].Name, Equals, "multiply")
	c.Assert(regions[0].Calls, Equals, int64(1))
	// Outer begin, 3 x (begin, end), outer end: 8 clock reads, 7 steps.
	c.Assert(regions[0].Total, Equals, 7*time.Millisecond)
	c.Assert(regions[1].Calls, Equals, int64(3))
	c.Assert(regions[1].Total, Equals, 3*time.Millisecond)

	marks, ok := factory.Value("instrument.marks", map[string]string{"language": "c"})
	c.Assert(ok, IsTrue)
	c.Assert(marks, Equals, 4.0)
	snap, ok := factory.Summary("instrument.region_seconds",
		map[string]string{"language": "c", "region": "row"})
	c.Assert(ok, IsTrue)
	c.Assert(snap.Count, Equals, int64(3))
}

func (s *RuntimeSuite) TestScope(c *C) {
	if !Enabled {
		c.Skip("instrumentation compiled out")
	}
	rt := NewRuntime(RuntimeParams{Clock: time2.NewStepClock(time.Microsecond)})
	id := rt.Region("cell")
	sc := rt.Scope(id)
	c.Assert(rt.Depth(), Equals, 1)
	c.Assert(sc.Close(), IsNil)
	c.Assert(rt.Count(), Equals, int64(1))
}

func (s *RuntimeSuite) TestUnbalanced(c *C) {
	if !Enabled {
		c.Skip("instrumentation compiled out")
	}
	rt := NewRuntime(RuntimeParams{})
	a := rt.Region("a")
	b := rt.Region("b")

	c.Assert(rt.End(a), ErrorMatches, "(?s)end of region 0 without a matching begin.*")

	rt.Begin(a)
	c.Assert(rt.End(b), ErrorMatches, "(?s)unbalanced marks: ending region 1 while region 0 is open.*")
	c.Assert(rt.End(a), IsNil)

	rt.Begin(RegionID(42))
	c.Assert(rt.End(RegionID(42)), ErrorMatches, "(?s)unknown region 42.*")
}

func (s *RuntimeSuite) TestReset(c *C) {
	if !Enabled {
		c.Skip("instrumentation compiled out")
	}
	rt := NewRuntime(RuntimeParams{Clock: &time2.MockClock{}})
	id := rt.Region("multiply")
	rt.Begin(id)
	c.Assert(rt.End(id), IsNil)
	rt.Begin(id)

	rt.Reset()
	c.Assert(rt.Count(), Equals, int64(0))
	c.Assert(rt.Depth(), Equals, 0)
	c.Assert(rt.Regions()[0].Calls, Equals, int64(0))
	c.Assert(rt.Region("multiply"), Equals, id)
}
