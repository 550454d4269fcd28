package l1model

import (
	"math"
	"testing"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	cfg := *DefaultConfig()
	cfg.Cols = 1024
	cfg.Rows = 64
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return NewModel(cfg)
}

func TestBackwardThenForwardIsExact(t *testing.T) {
	m := testModel(t)
	r := 7.5
	for row := 0; row < m.Rows(); row += 3 {
		for col := 0; col < m.Cols(); col += 17 {
			x, y, z := m.Backward(row, col, r)
			gotCol, gotRow := m.Forward(x, y, z, r)
			if gotCol != col || gotRow != row {
				t.Fatalf("Forward(Backward(%d,%d,r)) = (%d,%d), want (%d,%d)", row, col, gotCol, gotRow, col, row)
			}
		}
	}
}

func TestForwardThenBackwardRecoversDirectionWithinOnePixel(t *testing.T) {
	m := testModel(t)
	r := 10.0
	azimuths := []float64{0, 0.3, 1.0, math.Pi / 2, math.Pi, 3 * math.Pi / 2, 2*math.Pi - 0.01}
	elevations := []float64{-0.3, -0.1, 0, 0.1, 0.3}

	for _, az := range azimuths {
		for _, el := range elevations {
			x := r * math.Cos(el) * math.Cos(az)
			y := r * math.Cos(el) * math.Sin(az)
			z := r * math.Sin(el)

			col, row := m.Forward(x, y, z, r)
			if col == -1 || row == -1 {
				t.Fatalf("Forward unexpectedly rejected az=%v el=%v", az, el)
			}
			bx, by, bz := m.Backward(row, col, r)

			origAz := math.Atan2(y, x)
			if origAz < 0 {
				origAz += 2 * math.Pi
			}
			backAz := math.Atan2(by, bx)
			if backAz < 0 {
				backAz += 2 * math.Pi
			}
			azDiff := math.Abs(origAz - backAz)
			if azDiff > math.Pi {
				azDiff = 2*math.Pi - azDiff
			}
			if azDiff > 1.5*m.azStep {
				t.Errorf("az=%v el=%v: azimuth drift %v exceeds one pixel (%v)", az, el, azDiff, m.azStep)
			}

			origEl := math.Asin(z / r)
			backEl := math.Asin(bz / r)
			if math.Abs(origEl-backEl) > 1.5*m.elevStep {
				t.Errorf("az=%v el=%v: elevation drift %v exceeds one pixel (%v)", az, el, math.Abs(origEl-backEl), m.elevStep)
			}
		}
	}
}

func TestForwardRejectsOutOfBandElevation(t *testing.T) {
	m := testModel(t)
	col, row := m.Forward(0, 0, 1, 1) // straight up: elevation = pi/2, out of the 45-degree band
	if col != -1 || row != -1 {
		t.Errorf("Forward straight up = (%d,%d), want (-1,-1)", col, row)
	}
}

func TestForwardRejectsNonPositiveRange(t *testing.T) {
	m := testModel(t)
	col, row := m.Forward(1, 0, 0, 0)
	if col != -1 || row != -1 {
		t.Errorf("Forward with r=0 = (%d,%d), want (-1,-1)", col, row)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(c *Config) {}, false},
		{"zero cols", func(c *Config) { c.Cols = 0 }, true},
		{"zero rows", func(c *Config) { c.Rows = 0 }, true},
		{"negative hfov", func(c *Config) { c.HFOV = -1 }, true},
		{"vfov too large", func(c *Config) { c.VFOV = math.Pi }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := *DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
