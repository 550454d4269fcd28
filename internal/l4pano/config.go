package l4pano

import "fmt"

// Config controls panorama fusion, rendering, and re-frame policy.
type Config struct {
	MaxCnt     int     // ceiling on per-pixel confidence (default 10)
	RangeRatio float64 // depth-agreement tolerance (default 0.1)
	MinRange   float64 // reject closer returns (default 0.5 m)

	AlignGravity bool // forces render rotation to identity

	// Render trigger policy (spec §4.4 ShouldRender): OR of three
	// conditions, evaluated by the orchestrator each scan.
	RenderTransThresh     float64 // meters of translation since last render
	RenderMatchRatioFloor float64 // match ratio below this triggers a render
	RenderSweepCountMax   int     // sweeps processed since last render
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxCnt:                10,
		RangeRatio:            0.1,
		MinRange:              0.5,
		AlignGravity:          false,
		RenderTransThresh:     1.0,
		RenderMatchRatioFloor: 0.5,
		RenderSweepCountMax:   10,
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.MaxCnt <= 0 {
		return fmt.Errorf("l4pano: MaxCnt must be positive, got %d", c.MaxCnt)
	}
	if c.RangeRatio <= 0 || c.RangeRatio >= 1 {
		return fmt.Errorf("l4pano: RangeRatio must be in (0, 1), got %f", c.RangeRatio)
	}
	if c.MinRange < 0 {
		return fmt.Errorf("l4pano: MinRange must be non-negative, got %f", c.MinRange)
	}
	if c.RenderTransThresh <= 0 {
		return fmt.Errorf("l4pano: RenderTransThresh must be positive, got %f", c.RenderTransThresh)
	}
	if c.RenderMatchRatioFloor < 0 || c.RenderMatchRatioFloor > 1 {
		return fmt.Errorf("l4pano: RenderMatchRatioFloor must be in [0, 1], got %f", c.RenderMatchRatioFloor)
	}
	if c.RenderSweepCountMax <= 0 {
		return fmt.Errorf("l4pano: RenderSweepCountMax must be positive, got %d", c.RenderSweepCountMax)
	}
	return nil
}
