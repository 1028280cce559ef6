package matmul

import (
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
)

// Dense square row-major matrix.
type Matrix struct {
	n    int
	data []float64
}

func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]float64, n*n)}
}

func (m *Matrix) Order() int {
	return m.n
}

func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.n+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*m.n+j] = v
}

// Backing slice, row-major.
func (m *Matrix) Data() []float64 {
	return m.data
}

// A mark that may or may not be active, closed exactly once.
type guard struct {
	scope  instrument.Scope
	active bool
}

func (g guard) close() error {
	if !g.active {
		return nil
	}
	return g.scope.Close()
}

type cxxKernel struct {
	x, y, z *Matrix

	rt      *instrument.Runtime
	regions [numGranularities]instrument.RegionID
	level   Granularity
}

func newCXXKernel(n int, rt *instrument.Runtime) *cxxKernel {
	k := &cxxKernel{
		x:  NewMatrix(n),
		y:  NewMatrix(n),
		z:  NewMatrix(n),
		rt: rt,
	}
	fillInputs(k.x.data, k.y.data, n)
	for _, g := range Granularities {
		k.regions[g] = rt.Region("cxx." + g.String())
	}
	return k
}

func (k *cxxKernel) open(g Granularity) guard {
	if g != k.level {
		return guard{}
	}
	return guard{scope: k.rt.Scope(k.regions[g]), active: true}
}

func (k *cxxKernel) term(i, j, p int) (float64, error) {
	mark := k.open(PerTerm)
	v := k.x.At(i, p) * k.y.At(p, j)
	return v, mark.close()
}

func (k *cxxKernel) cell(i, j int) error {
	mark := k.open(PerCell)
	sum := 0.0
	for p := 0; p < k.x.Order(); p++ {
		v, err := k.term(i, j, p)
		if err != nil {
			return err
		}
		sum += v
	}
	k.z.Set(i, j, sum)
	return mark.close()
}

func (k *cxxKernel) row(i int) error {
	mark := k.open(PerRow)
	for j := 0; j < k.y.Order(); j++ {
		if err := k.cell(i, j); err != nil {
			return err
		}
	}
	return mark.close()
}

// z = x * y with marks at granularity g only.
func (k *cxxKernel) Mul(g Granularity) error {
	if k.x.Order() != k.y.Order() || k.x.Order() != k.z.Order() {
		return errors.Newf("order mismatch: %d x %d -> %d",
			k.x.Order(), k.y.Order(), k.z.Order())
	}
	k.level = g
	mark := k.open(PerCall)
	for i := 0; i < k.x.Order(); i++ {
		if err := k.row(i); err != nil {
			return err
		}
	}
	return mark.close()
}

func (k *cxxKernel) result() []float64 {
	return k.z.data
}
