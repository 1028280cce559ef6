package matmul

import (
	"github.com/nersc/instbench/errors"
)

// Largest supported matrix order.  Three matrices of this order take
// 384MiB.
const MaxSize = 4096

func validate(size, max, nitr int64) error {
	if size <= 0 || size > MaxSize {
		return errors.Newf("size %d out of range [1, %d]", size, MaxSize)
	}
	if max < 0 {
		return errors.Newf("negative max: %d", max)
	}
	if nitr <= 0 {
		return errors.Newf("nitr must be positive, got %d", nitr)
	}
	return nil
}

// Fills a and b (row-major, order n) with small integers so that every
// product is exact in float64.
func fillInputs(a, b []float64, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a[i*n+j] = float64((i+j)%7 + 1)
			b[i*n+j] = float64((i*j)%5 + 1)
		}
	}
}
