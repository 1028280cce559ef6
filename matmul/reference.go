package matmul

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/instrument"
)

// Product of the benchmark inputs of order size, computed with BLAS dgemm.
// Row-major, like the kernels.
func Reference(size int) []float64 {
	a := make([]float64, size*size)
	b := make([]float64, size*size)
	fillInputs(a, b, size)

	c := blas64.General{Rows: size, Cols: size, Stride: size, Data: make([]float64, size*size)}
	blas64.Gemm(
		blas.NoTrans, blas.NoTrans,
		1,
		blas64.General{Rows: size, Cols: size, Stride: size, Data: a},
		blas64.General{Rows: size, Cols: size, Stride: size, Data: b},
		0,
		c)
	return c.Data
}

func compare(language string, got, want []float64) error {
	if len(got) != len(want) {
		return errors.Newf("%s: result has %d elements, reference has %d",
			language, len(got), len(want))
	}
	for i := range want {
		tol := 1e-9 * math.Max(1, math.Abs(want[i]))
		if math.Abs(got[i]-want[i]) > tol {
			return errors.Newf("%s: element %d is %v, reference is %v",
				language, i, got[i], want[i])
		}
	}
	return nil
}

// Checks both kernels against Reference, at every granularity.
func Verify(size int) error {
	if err := validate(int64(size), 0, 1); err != nil {
		return err
	}
	want := Reference(size)

	rt := instrument.NewRuntime(instrument.RuntimeParams{})
	ck := newCKernel(size, rt)
	xk := newCXXKernel(size, rt)
	for _, g := range append([]Granularity{granularityNone}, Granularities...) {
		if err := ck.multiply(g); err != nil {
			return err
		}
		if err := compare("c/"+g.String(), ck.result(), want); err != nil {
			return err
		}
		if err := xk.Mul(g); err != nil {
			return err
		}
		if err := compare("cxx/"+g.String(), xk.result(), want); err != nil {
			return err
		}
	}
	return nil
}
