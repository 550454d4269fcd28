// Package l1model implements the azimuth/elevation projective LidarModel.
package l1model

import "math"

// Model maps 3D points in the sensor frame to panoramic (row, column)
// pixel coordinates and back, using precomputed per-row elevation and
// per-column azimuth tables. It is a pure function of sensor geometry: it
// holds no per-scan state and is safe for concurrent use by multiple
// goroutines.
//
// Grounded on original_source/sv/llol/pano.cpp's use of a shared model for
// both forward projection (during fusion) and backward projection (during
// render); the precomputed-table style mirrors the teacher's
// internal/lidar/parser.go spherical-to-Cartesian conversion.
type Model struct {
	cfg Config

	elevStep float64 // radians per row
	azStep   float64 // radians per column

	sinElev []float64 // len Rows
	cosElev []float64
	sinAz   []float64 // len Cols
	cosAz   []float64
}

// NewModel builds a Model from cfg, precomputing its trig tables. cfg must
// already pass Validate.
func NewModel(cfg Config) *Model {
	m := &Model{cfg: cfg}

	if cfg.Rows > 1 {
		m.elevStep = cfg.VFOV / float64(cfg.Rows-1)
	}
	m.azStep = cfg.HFOV / float64(cfg.Cols)

	m.sinElev = make([]float64, cfg.Rows)
	m.cosElev = make([]float64, cfg.Rows)
	for row := 0; row < cfg.Rows; row++ {
		el := m.elevationAt(row)
		m.sinElev[row] = math.Sin(el)
		m.cosElev[row] = math.Cos(el)
	}

	m.sinAz = make([]float64, cfg.Cols)
	m.cosAz = make([]float64, cfg.Cols)
	for col := 0; col < cfg.Cols; col++ {
		az := m.azimuthAt(col)
		m.sinAz[col] = math.Sin(az)
		m.cosAz[col] = math.Cos(az)
	}
	return m
}

// Cols returns the image width.
func (m *Model) Cols() int { return m.cfg.Cols }

// Rows returns the image height.
func (m *Model) Rows() int { return m.cfg.Rows }

func (m *Model) elevationAt(row int) float64 {
	return m.cfg.VFOV/2 - float64(row)*m.elevStep
}

func (m *Model) azimuthAt(col int) float64 {
	return float64(col) * m.azStep
}

// Forward projects a sensor-frame point (with precomputed range r) into
// (col, row). Returns (-1, -1) if the elevation falls outside the
// configured vertical band.
func (m *Model) Forward(x, y, z, r float64) (col, row int) {
	if r <= 0 {
		return -1, -1
	}
	elev := math.Asin(z / r)
	half := m.cfg.VFOV / 2
	// The first and last rows sit exactly on ±VFOV/2; the small tolerance
	// keeps asin rounding from rejecting points back-projected from them.
	const bandEps = 1e-9
	if elev < -half-bandEps || elev > half+bandEps {
		return -1, -1
	}

	az := math.Atan2(y, x)
	if az < 0 {
		az += 2 * math.Pi
	}
	col = int(math.Round(az/m.azStep)) % m.cfg.Cols
	if col < 0 {
		col += m.cfg.Cols
	}

	if m.cfg.Rows == 1 {
		row = 0
	} else {
		row = int(math.Round((half - elev) / m.elevStep))
	}
	if row < 0 {
		row = 0
	} else if row >= m.cfg.Rows {
		row = m.cfg.Rows - 1
	}
	return col, row
}

// Backward reconstructs the sensor-frame direction for pixel (row, col) at
// range r, using the precomputed trig tables.
func (m *Model) Backward(row, col int, r float64) (x, y, z float64) {
	ce, se := m.cosElev[row], m.sinElev[row]
	ca, sa := m.cosAz[col], m.sinAz[col]
	x = r * ce * ca
	y = r * ce * sa
	z = r * se
	return x, y, z
}
