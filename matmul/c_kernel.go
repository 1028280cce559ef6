package matmul

import (
	"github.com/nersc/instbench/instrument"
)

// Capacity of the fixed arrays in CRuntimeData.
const MaxEntries = numGranularities

// Result of the "c" benchmark.  Only the first Entries slots of each array
// are meaningful.
type CRuntimeData struct {
	Entries    int64
	InstCount  [MaxEntries]int64
	Timing     [MaxEntries]float64
	InstPerSec [MaxEntries]float64
	Overhead   [MaxEntries]float64
}

type cKernel struct {
	n       int
	a, b, c []float64

	rt      *instrument.Runtime
	regions [numGranularities]instrument.RegionID
}

func newCKernel(n int, rt *instrument.Runtime) *cKernel {
	k := &cKernel{
		n:  n,
		a:  make([]float64, n*n),
		b:  make([]float64, n*n),
		c:  make([]float64, n*n),
		rt: rt,
	}
	fillInputs(k.a, k.b, n)
	for _, g := range Granularities {
		k.regions[g] = rt.Region("c." + g.String())
	}
	return k
}

// c = a * b with marks at granularity g only.
func (k *cKernel) multiply(g Granularity) error {
	n := k.n
	a, b, c := k.a, k.b, k.c
	rt := k.rt

	if g == PerCall {
		rt.Begin(k.regions[PerCall])
	}
	for i := 0; i < n; i++ {
		if g == PerRow {
			rt.Begin(k.regions[PerRow])
		}
		for j := 0; j < n; j++ {
			if g == PerCell {
				rt.Begin(k.regions[PerCell])
			}
			sum := 0.0
			for p := 0; p < n; p++ {
				if g == PerTerm {
					rt.Begin(k.regions[PerTerm])
				}
				sum += a[i*n+p] * b[p*n+j]
				if g == PerTerm {
					if err := rt.End(k.regions[PerTerm]); err != nil {
						return err
					}
				}
			}
			c[i*n+j] = sum
			if g == PerCell {
				if err := rt.End(k.regions[PerCell]); err != nil {
					return err
				}
			}
		}
		if g == PerRow {
			if err := rt.End(k.regions[PerRow]); err != nil {
				return err
			}
		}
	}
	if g == PerCall {
		return rt.End(k.regions[PerCall])
	}
	return nil
}

func (k *cKernel) result() []float64 {
	return k.c
}
