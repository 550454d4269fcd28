package l1model

import (
	"fmt"
	"math"
)

// Config describes the sensor geometry backing a Model.
type Config struct {
	Cols int     // image width in columns (azimuth samples per revolution)
	Rows int     // image height in rows (elevation channels)
	HFOV float64 // horizontal field of view in radians (default 2*pi)
	VFOV float64 // vertical field of view in radians, centered on 0
}

// DefaultConfig returns a Config for a typical 1024x64, full-revolution,
// 45-degree-vertical-band sensor.
func DefaultConfig() *Config {
	return &Config{
		Cols: 1024,
		Rows: 64,
		HFOV: 2 * math.Pi,
		VFOV: 45.0 * math.Pi / 180.0,
	}
}

// Validate checks that the geometry is usable.
func (c *Config) Validate() error {
	if c.Cols <= 0 {
		return fmt.Errorf("l1model: Cols must be positive, got %d", c.Cols)
	}
	if c.Rows <= 0 {
		return fmt.Errorf("l1model: Rows must be positive, got %d", c.Rows)
	}
	if c.HFOV <= 0 || c.HFOV > 2*math.Pi {
		return fmt.Errorf("l1model: HFOV must be in (0, 2*pi], got %f", c.HFOV)
	}
	if c.VFOV <= 0 || c.VFOV >= math.Pi {
		return fmt.Errorf("l1model: VFOV must be in (0, pi), got %f", c.VFOV)
	}
	return nil
}
