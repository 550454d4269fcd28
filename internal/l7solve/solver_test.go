package l7solve

import (
	"context"
	"math"
	"testing"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l5match"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"gonum.org/v1/gonum/spatial/r3"
)

// identityU is the square-root information matrix for an isotropic,
// unit-variance Gaussian.
var identityU = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// syntheticMatches builds correspondences for a small cloud of points seen
// in the sweep frame (identity column pose) against the same points
// translated by trueOffset in the pano frame — i.e. the ground truth
// increment is trueOffset, applied as a pure translation.
func syntheticMatches(n int, trueOffset r3.Vec) []l5match.Correspondence {
	matches := make([]l5match.Correspondence, n)
	for i := 0; i < n; i++ {
		p := r3.Vec{X: float64(i), Y: float64(i%3) - 1, Z: 2 + float64(i%5)*0.1}
		matches[i] = l5match.Correspondence{
			GridCol:   0,
			ColTime:   0,
			SweepMean: p,
			PanoMean:  r3.Add(p, trueOffset),
			U:         identityU,
		}
	}
	return matches
}

func TestSolveConvergesToTranslation(t *testing.T) {
	trueOffset := r3.Vec{X: 0.2, Y: -0.1, Z: 0.05}
	matches := syntheticMatches(20, trueOffset)
	colPoses := []manifold.SE3f{manifold.FromSE3(manifold.Identity())}

	cfg := *DefaultConfig()
	cfg.MaxIters = 20
	solver := NewGicpSolver(cfg)

	result, summary := solver.Solve(nil, 0, matches, colPoses, 0, 1)
	if !summary.IsConverged() {
		t.Fatalf("expected convergence, got status=%s summary=%s", summary.Status, summary.Report())
	}

	got := result.X0.V
	if r3.Norm(r3.Sub(got, trueOffset)) > 1e-3 {
		t.Errorf("solved translation = %+v, want ~%+v", got, trueOffset)
	}
	if summary.FinalCost > summary.InitialCost {
		t.Errorf("final cost %v should not exceed initial cost %v", summary.FinalCost, summary.InitialCost)
	}
}

func TestSolveCostNonIncreasingWithMoreIterations(t *testing.T) {
	// a larger pure-translation offset than the convergence test: allowing
	// more GN iterations should never leave the final cost worse.
	trueOffset := r3.Vec{X: 0.5, Y: 0.3, Z: -0.2}
	matches := syntheticMatches(20, trueOffset)
	colPoses := []manifold.SE3f{manifold.FromSE3(manifold.Identity())}

	prevCost := math.Inf(1)
	for _, maxIters := range []int{1, 2, 3, 5, 10} {
		cfg := *DefaultConfig()
		cfg.MaxIters = maxIters
		solver := NewGicpSolver(cfg)
		_, summary := solver.Solve(nil, 0, matches, colPoses, 0, 1)
		if summary.FinalCost > prevCost+1e-9 {
			t.Fatalf("MaxIters=%d: cost increased from %v to %v", maxIters, prevCost, summary.FinalCost)
		}
		prevCost = summary.FinalCost
	}
}

func TestSolveMatchesSequentialResultWhenParallelized(t *testing.T) {
	trueOffset := r3.Vec{X: 0.2, Y: -0.1, Z: 0.05}
	matches := syntheticMatches(20, trueOffset)
	colPoses := []manifold.SE3f{manifold.FromSE3(manifold.Identity())}
	cfg := *DefaultConfig()
	cfg.MaxIters = 20

	seqResult, _ := NewGicpSolver(cfg).Solve(nil, 0, matches, colPoses, 0, 1)

	pool := forkjoin.NewPool(context.Background(), 4)
	defer pool.Stop()
	parResult, _ := NewGicpSolver(cfg).Solve(pool, 4, matches, colPoses, 0, 1)

	if r3.Norm(r3.Sub(seqResult.X0.V, parResult.X0.V)) > 1e-9 {
		t.Errorf("parallel result %+v differs from sequential result %+v", parResult.X0.V, seqResult.X0.V)
	}
}

func TestSolveEmptyMatchesReturnsIdentity(t *testing.T) {
	colPoses := []manifold.SE3f{manifold.FromSE3(manifold.Identity())}
	solver := NewGicpSolver(*DefaultConfig())
	result, summary := solver.Solve(nil, 0, nil, colPoses, 0, 1)
	if r3.Norm(result.X0.V) != 0 || r3.Norm(result.X0.W) != 0 {
		t.Errorf("expected zero increment for no matches, got %+v", result.X0)
	}
	if summary.Status != CostTooSmall {
		t.Errorf("expected CostTooSmall status for no matches (spec §8 scenario 1), got %s", summary.Status)
	}
}

func TestSolveBelowMinCorrespondencesReturnsCostTooSmall(t *testing.T) {
	cfg := *DefaultConfig()
	cfg.MinCorrespondences = 3
	colPoses := []manifold.SE3f{manifold.FromSE3(manifold.Identity())}
	matches := []l5match.Correspondence{
		{GridCol: 0, ColTime: 0, SweepMean: r3.Vec{X: 1}, PanoMean: r3.Vec{X: 1.1}, U: identityU},
	}
	solver := NewGicpSolver(cfg)
	result, summary := solver.Solve(nil, 0, matches, colPoses, 0, 1)
	if summary.Status != CostTooSmall {
		t.Errorf("expected CostTooSmall below MinCorrespondences, got %s", summary.Status)
	}
	if r3.Norm(result.X0.V) != 0 || r3.Norm(result.X0.W) != 0 {
		t.Errorf("expected zero increment below MinCorrespondences, got %+v", result.X0)
	}
}

func TestAtColumnFractionScalesLinearRate(t *testing.T) {
	result := Result{
		Model: LinearModel,
		X0:    manifold.Twist{},
		Rate:  manifold.Twist{V: r3.Vec{X: 1}},
	}
	zero := result.AtColumnFraction(0)
	if r3.Norm(zero.V) > 1e-9 {
		t.Errorf("AtColumnFraction(0) = %+v, want ~zero", zero)
	}
	full := result.AtColumnFraction(1)
	if math.Abs(full.V.X-1) > 1e-9 {
		t.Errorf("AtColumnFraction(1).V.X = %v, want 1", full.V.X)
	}
	half := result.AtColumnFraction(0.5)
	if math.Abs(half.V.X-0.5) > 1e-9 {
		t.Errorf("AtColumnFraction(0.5).V.X = %v, want 0.5", half.V.X)
	}
}
