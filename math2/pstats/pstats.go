// Package pstats summarizes repeated timing measurements by percentile.
package pstats

import (
	"math"
	"sort"

	"github.com/nersc/instbench/errors"
)

type PStats struct {
	Min  float64
	Max  float64
	Mean float64
	// percentile levels desired as integers: 75 = P75, 99 = P99, 999 = P99.9, etc.
	Pctls []int
	// percentiles values (reads nicely, eg, P[99] etc).
	P map[int]float64
}

// Samples are not modified.  pctls must be strictly increasing and
// positive.
func NewPStats(samples []float64, pctls []int) (*PStats, error) {
	if len(samples) == 0 {
		return nil, errors.New("NewPStats: no samples provided")
	}
	if len(pctls) < 1 {
		return nil, errors.New("NewPStats: empty pctls provided")
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	pstats := &PStats{
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Pctls: make([]int, len(pctls)),
		P:     make(map[int]float64, len(pctls)),
	}
	copy(pstats.Pctls, pctls)

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}
	pstats.Mean = sum / float64(len(sorted))

	n := len(sorted)
	prevPctl := 0
	for _, pctl := range pctls {
		if pctl <= prevPctl {
			return nil, errors.Newf("NewPStats: invalid pctls provided: %v", pctls)
		}
		var den float64
		if pctl < 100 {
			den = 100.0
		} else {
			den = math.Pow(10, math.Ceil(math.Log10(float64(pctl))))
		}
		si := int(math.Floor(float64(n-1) * float64(pctl) / den))
		pstats.P[pctl] = sorted[si]
		prevPctl = pctl
	}
	return pstats, nil
}
