package matmul

import (
	"fmt"
	"math"
)

type Granularity int

const (
	// Internal: no marks at all.  Used for the baseline.
	granularityNone Granularity = -1

	PerCall Granularity = iota - 1
	PerRow
	PerCell
	PerTerm
)

// Untyped so that it sizes arrays and compares against int64 counts alike.
const numGranularities = 4

// Coarse to fine.
var Granularities = []Granularity{PerCall, PerRow, PerCell, PerTerm}

var granularityNames = [numGranularities]string{"call", "row", "cell", "term"}

func (g Granularity) String() string {
	if g == granularityNone {
		return "none"
	}
	if g < 0 || int(g) >= numGranularities {
		return fmt.Sprintf("granularity(%d)", int(g))
	}
	return granularityNames[g]
}

// Marks recorded by one multiply of order size at this granularity,
// saturating at math.MaxInt64.
func (g Granularity) Marks(size int64) int64 {
	if g < 0 || size <= 0 {
		return 0
	}
	marks := int64(1)
	for i := Granularity(0); i < g; i++ {
		if marks > math.MaxInt64/size {
			return math.MaxInt64
		}
		marks *= size
	}
	return marks
}

// Granularities that record at most max marks per multiply, coarse to
// fine.
func Plan(size, max int64) []Granularity {
	var plan []Granularity
	for _, g := range Granularities {
		if g.Marks(size) > max {
			break
		}
		plan = append(plan, g)
	}
	return plan
}
