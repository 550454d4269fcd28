// Package meanvar implements the running mean + covariance accumulator.
package meanvar

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// MeanCovar3 is a running count/mean/3x3-co-moment accumulator over 3D
// points, updated with Welford's numerically stable incremental formula.
// Accumulation order does not affect the result beyond floating-point
// rounding (spec §8's permutation-invariance property).
type MeanCovar3 struct {
	n    int
	mean r3.Vec
	m2   [3][3]float64 // running sum of outer((x-mean_old), (x-mean_new))
}

// Reset clears the accumulator back to its zero state.
func (mc *MeanCovar3) Reset() {
	*mc = MeanCovar3{}
}

// N returns the number of points folded into the accumulator.
func (mc *MeanCovar3) N() int { return mc.n }

// Mean returns the running mean. Only meaningful once N() > 0.
func (mc *MeanCovar3) Mean() r3.Vec { return mc.mean }

// Add folds a new point into the accumulator.
func (mc *MeanCovar3) Add(p r3.Vec) {
	mc.n++
	n := float64(mc.n)
	delta := r3.Sub(p, mc.mean)
	mc.mean = r3.Add(mc.mean, r3.Scale(1/n, delta))
	delta2 := r3.Sub(p, mc.mean)

	d1 := [3]float64{delta.X, delta.Y, delta.Z}
	d2 := [3]float64{delta2.X, delta2.Y, delta2.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			mc.m2[i][j] += d1[i] * d2[j]
		}
	}
}

// Merge folds the accumulation of other into mc using the parallel
// (Chan et al.) combination formula, independent of whether other was
// itself built incrementally or by merging.
func (mc *MeanCovar3) Merge(other MeanCovar3) {
	if other.n == 0 {
		return
	}
	if mc.n == 0 {
		*mc = other
		return
	}
	na, nb := float64(mc.n), float64(other.n)
	nTotal := na + nb
	delta := r3.Sub(other.mean, mc.mean)
	newMean := r3.Add(mc.mean, r3.Scale(nb/nTotal, delta))

	d := [3]float64{delta.X, delta.Y, delta.Z}
	var merged [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			merged[i][j] = mc.m2[i][j] + other.m2[i][j] + d[i]*d[j]*na*nb/nTotal
		}
	}
	mc.n += other.n
	mc.mean = newMean
	mc.m2 = merged
}

// Ok reports whether the accumulator has enough points to be a valid
// Gaussian, per minPts (typically 2 for the matcher, >=5 for a "good" grid
// cell per spec §3).
func (mc *MeanCovar3) Ok(minPts int) bool { return mc.n >= minPts }

// Covariance returns the 3x3 sample covariance matrix (Bessel-corrected,
// divided by n-1). Callers must check Ok(2) first.
func (mc *MeanCovar3) Covariance() *mat.SymDense {
	cov := mat.NewSymDense(3, nil)
	if mc.n < 2 {
		return cov
	}
	denom := float64(mc.n - 1)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			cov.SetSym(i, j, mc.m2[i][j]/denom)
		}
	}
	return cov
}

// CurvatureScore computes the scalar curvature/variance score of a set of
// radial ranges (spec §4.3.1): the squared coefficient of variation
// (variance / mean²) of the ranges about the window mean, using gonum/stat's
// numerically stable single-pass mean+variance. Returns NaN if fewer than
// two samples are given (unscored, per spec §3's grid-cell "score" field).
func CurvatureScore(ranges []float64) float64 {
	if len(ranges) < 2 {
		return math.NaN()
	}
	mean, variance := stat.MeanVariance(ranges, nil)
	if mean <= 0 {
		return math.NaN()
	}
	// Squared coefficient of variation: low for locally planar (near-constant
	// range) windows, growing with surface curvature or range noise.
	return variance / (mean * mean)
}
