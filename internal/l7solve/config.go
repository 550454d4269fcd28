package l7solve

import "fmt"

// Model selects the motion model the solver optimizes over.
type Model int

const (
	// RigidModel solves a single 6-DoF increment applied uniformly to every
	// correspondence regardless of its column time.
	RigidModel Model = iota
	// LinearModel solves a 12-DoF increment: a base 6-DoF pose offset plus
	// a constant 6-DoF velocity (twist-rate) applied scaled by each
	// correspondence's column-time fraction over the sweep window.
	LinearModel
)

// Config holds the solver's stopping tolerances and motion model choice.
//
// Grounded on spec §5's `solver.max_iters`/`grad_tol`/`step_tol`/
// `cost_tol`/`rigid` config knobs; the tolerance-field naming follows
// original_source/sv/util/solver.cpp's SolverStatus/SolverSummary usage.
type Config struct {
	MaxIters int
	GradTol  float64 // stop when ||g||_inf < GradTol
	StepTol  float64 // stop when ||delta|| < StepTol
	CostTol  float64 // stop when relative cost decrease < CostTol
	Rigid    bool    // true selects RigidModel, false selects LinearModel

	// InitialDamping is the Levenberg damping added to the Hessian diagonal
	// when the undamped Cholesky factorization fails (rank-deficient H),
	// doubled on each retry up to MaxDampingRetries.
	InitialDamping   float64
	MaxDampingRetries int

	// MinCorrespondences is the minimum number of surviving
	// correspondences required to attempt a solve. Fewer than this is
	// degenerate geometry per spec §7: Solve returns CostTooSmall without
	// updating the trajectory.
	MinCorrespondences int
}

// DefaultConfig returns reasonable defaults for real-time GN iteration.
func DefaultConfig() *Config {
	return &Config{
		MaxIters:           10,
		GradTol:            1e-8,
		StepTol:            1e-8,
		CostTol:            1e-8,
		Rigid:              true,
		InitialDamping:     1e-6,
		MaxDampingRetries:  5,
		MinCorrespondences: 3,
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.MaxIters <= 0 {
		return fmt.Errorf("l7solve: MaxIters must be positive, got %d", c.MaxIters)
	}
	if c.GradTol <= 0 || c.StepTol <= 0 || c.CostTol <= 0 {
		return fmt.Errorf("l7solve: tolerances must be positive")
	}
	if c.InitialDamping <= 0 {
		return fmt.Errorf("l7solve: InitialDamping must be positive, got %v", c.InitialDamping)
	}
	if c.MaxDampingRetries <= 0 {
		return fmt.Errorf("l7solve: MaxDampingRetries must be positive, got %d", c.MaxDampingRetries)
	}
	if c.MinCorrespondences <= 0 {
		return fmt.Errorf("l7solve: MinCorrespondences must be positive, got %d", c.MinCorrespondences)
	}
	return nil
}

// model returns the Model implied by Rigid.
func (c *Config) model() Model {
	if c.Rigid {
		return RigidModel
	}
	return LinearModel
}
