package l5match

import "fmt"

// Config controls the projective feature matcher.
//
// Grounded on original_source/sv/llol/match.h's MatcherParams
// (half_rows, min_dist, cov_lambda) and ProjMatcher's min_pts field.
type Config struct {
	HalfRows  int     // half rows of the pano window used to recompute mean-covariance (default 2)
	MinDist   float64 // min distance (m) for recomputing mc in pano (default 2.0)
	CovLambda float64 // lambda added to diagonal of cov when inverting (default 1e-6)
	MinPts    int     // min pano pixels in the window for a valid match
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		HalfRows:  2,
		MinDist:   2.0,
		CovLambda: 1e-6,
		MinPts:    5,
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.HalfRows < 0 {
		return fmt.Errorf("l5match: HalfRows must be non-negative, got %d", c.HalfRows)
	}
	if c.MinDist < 0 {
		return fmt.Errorf("l5match: MinDist must be non-negative, got %f", c.MinDist)
	}
	if c.CovLambda <= 0 {
		return fmt.Errorf("l5match: CovLambda must be positive, got %f", c.CovLambda)
	}
	if c.MinPts < 2 {
		return fmt.Errorf("l5match: MinPts must be >= 2, got %d", c.MinPts)
	}
	return nil
}
