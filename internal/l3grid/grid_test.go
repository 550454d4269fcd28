package l3grid

import (
	"context"
	"math"
	"testing"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l2sweep"
)

func TestGrid2SweepConversion(t *testing.T) {
	cfg := *DefaultConfig()
	g := NewGrid(cfg, 1024, 64)

	if r, c := g.Grid2Sweep(1, 1); r != 2 || c != 16 {
		t.Errorf("Grid2Sweep(1,1) = (%d,%d), want (2,16)", r, c)
	}
	if r, c := g.Grid2Sweep(0, 0); r != 0 || c != 0 {
		t.Errorf("Grid2Sweep(0,0) = (%d,%d), want (0,0)", r, c)
	}
	if r, c := g.Sweep2Grid(1, 1); r != 0 || c != 0 {
		t.Errorf("Sweep2Grid(1,1) = (%d,%d), want (0,0)", r, c)
	}
}

func planarScan(rows, cols int, rng float32) *l2sweep.Scan {
	px := make([]l2sweep.Pixel, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			az := 2 * math.Pi * float64(c) / float64(cols)
			px[r*cols+c] = l2sweep.Pixel{
				X:     float32(rng * float32(math.Cos(az))),
				Y:     float32(rng * float32(math.Sin(az))),
				Z:     0,
				Range: rng,
			}
		}
	}
	return &l2sweep.Scan{Rows: rows, Start: 0, End: cols, T0: 0, Dt: 1e-6, Pixels: px}
}

func TestAddScoresAndFiltersPlanarScan(t *testing.T) {
	cfg := *DefaultConfig()
	sweep := l2sweep.NewSweep(1024, 64)
	scan := planarScan(64, 1024, 5.0)
	if err := sweep.Add(scan); err != nil {
		t.Fatalf("sweep.Add: %v", err)
	}

	grid := NewGrid(cfg, 1024, 64)
	pool := forkjoin.NewPool(context.Background(), 4)
	defer pool.Stop()

	numValid, numGood := grid.Add(pool, sweep, 8)
	if numValid == 0 {
		t.Fatal("expected some valid cells for a fully populated planar scan")
	}
	if numGood == 0 {
		t.Error("expected a planar ring to produce some good (low-curvature) cells")
	}
}

func TestAddEmptyScanYieldsNoGoodCells(t *testing.T) {
	cfg := *DefaultConfig()
	sweep := l2sweep.NewSweep(1024, 64)
	scan := &l2sweep.Scan{Rows: 64, Start: 0, End: 1024, T0: 0, Dt: 1e-6, Pixels: make([]l2sweep.Pixel, 64*1024)}
	if err := sweep.Add(scan); err != nil {
		t.Fatalf("sweep.Add: %v", err)
	}

	grid := NewGrid(cfg, 1024, 64)
	pool := forkjoin.NewPool(context.Background(), 4)
	defer pool.Stop()

	_, numGood := grid.Add(pool, sweep, 0)
	if numGood != 0 {
		t.Errorf("expected 0 good cells for an all-invalid scan, got %d", numGood)
	}
}

func TestCellGood(t *testing.T) {
	c := &Cell{Score: math.NaN()}
	if c.Good(0.01, 2) {
		t.Error("unscored cell should never be good")
	}
	c.Score = 0.005
	if c.Good(0.01, 2) {
		t.Error("cell with insufficient mean-covariance points should not be good")
	}
}
