package l5match

import (
	"context"
	"math"
	"testing"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l1model"
	"github.com/ridgeline-robotics/lio/internal/l2sweep"
	"github.com/ridgeline-robotics/lio/internal/l3grid"
	"github.com/ridgeline-robotics/lio/internal/l4pano"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"gonum.org/v1/gonum/mat"
)

func TestComputeSqrtInfoIsUpperTriangular(t *testing.T) {
	covS := mat.NewSymDense(3, []float64{1, 0.1, 0, 0.1, 1, 0.05, 0, 0.05, 1})
	covP := mat.NewSymDense(3, []float64{0.5, 0, 0, 0, 0.5, 0, 0, 0, 0.5})

	U, ok := computeSqrtInfo(covS, covP, 1e-6)
	if !ok {
		t.Fatal("expected a well-conditioned sum to factorize")
	}
	for i := 1; i < 3; i++ {
		for j := 0; j < i; j++ {
			if U.At(i, j) != 0 {
				t.Errorf("U[%d][%d] = %v, want 0 (strictly upper triangular)", i, j, U.At(i, j))
			}
		}
	}

	// UtU should equal the inverse of (covS+covP+lambda*I)
	var UtU mat.Dense
	UtU.Mul(U.T(), U)
	var sum mat.SymDense
	sum.AddSym(covS, covP)
	for i := 0; i < 3; i++ {
		sum.SetSym(i, i, sum.At(i, i)+1e-6)
	}
	var sumInv mat.Dense
	if err := sumInv.Inverse(&sum); err != nil {
		t.Fatalf("reference inverse failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(UtU.At(i, j)-sumInv.At(i, j)) > 1e-6 {
				t.Errorf("(UtU)[%d][%d] = %v, want %v", i, j, UtU.At(i, j), sumInv.At(i, j))
			}
		}
	}
}

func uniformSweepAndGrid(t *testing.T, model *l1model.Model, rg float64) (*l2sweep.Sweep, *l3grid.Grid, *l4pano.Pano) {
	t.Helper()
	sweep := l2sweep.NewSweep(model.Cols(), model.Rows())
	scan := &l2sweep.Scan{Rows: model.Rows(), Start: 0, End: model.Cols(), T0: 0, Dt: 1e-6,
		Pixels: make([]l2sweep.Pixel, model.Rows()*model.Cols())}
	for row := 0; row < model.Rows(); row++ {
		for col := 0; col < model.Cols(); col++ {
			x, y, z := model.Backward(row, col, rg)
			scan.Pixels[row*model.Cols()+col] = l2sweep.Pixel{X: float32(x), Y: float32(y), Z: float32(z), Range: float32(rg)}
		}
	}
	if err := sweep.Add(scan); err != nil {
		t.Fatalf("sweep.Add: %v", err)
	}
	for col := range sweep.TfPanoSens {
		sweep.TfPanoSens[col] = manifold.FromSE3(manifold.Identity())
	}

	gridCfg := *l3grid.DefaultConfig()
	grid := l3grid.NewGrid(gridCfg, model.Cols(), model.Rows())
	pool := forkjoin.NewPool(context.Background(), 4)
	defer pool.Stop()
	grid.Add(pool, sweep, 0)
	for col := range grid.ColPose {
		grid.ColPose[col] = manifold.FromSE3(manifold.Identity())
	}

	pano := l4pano.NewPano(*l4pano.DefaultConfig(), model)
	pool2 := forkjoin.NewPool(context.Background(), 4)
	defer pool2.Stop()
	pano.Add(pool2, sweep, 0, model.Cols(), 0)

	return sweep, grid, pano
}

func TestMatchPlanarWallProducesGoodMatches(t *testing.T) {
	cfg := *l1model.DefaultConfig()
	cfg.Cols, cfg.Rows = 256, 32
	model := l1model.NewModel(cfg)

	_, grid, pano := uniformSweepAndGrid(t, model, 5.0)

	colTimes := make([]float64, grid.Cols)
	matcher := NewMatcher(*DefaultConfig())
	pool := forkjoin.NewPool(context.Background(), 4)
	defer pool.Stop()

	matches, numGood := matcher.Match(pool, grid, pano, colTimes, 0, grid.Cols, 4)
	if numGood == 0 {
		t.Fatal("expected some good matches for a planar wall with no motion")
	}
	if len(matches) != numGood {
		t.Errorf("len(matches) = %d, want %d", len(matches), numGood)
	}
	for _, m := range matches {
		if !m.Valid(cfgMinPts()) {
			t.Errorf("returned match failed its own Valid() gate: %+v", m)
		}
	}
}

func cfgMinPts() int { return DefaultConfig().MinPts }

func TestMatchEmptySweepProducesNoMatches(t *testing.T) {
	cfg := *l1model.DefaultConfig()
	cfg.Cols, cfg.Rows = 256, 32
	model := l1model.NewModel(cfg)

	sweep := l2sweep.NewSweep(model.Cols(), model.Rows())
	scan := &l2sweep.Scan{Rows: model.Rows(), Start: 0, End: model.Cols(), T0: 0, Dt: 1e-6,
		Pixels: make([]l2sweep.Pixel, model.Rows()*model.Cols())}
	if err := sweep.Add(scan); err != nil {
		t.Fatalf("sweep.Add: %v", err)
	}

	gridCfg := *l3grid.DefaultConfig()
	grid := l3grid.NewGrid(gridCfg, model.Cols(), model.Rows())
	pano := l4pano.NewPano(*l4pano.DefaultConfig(), model)

	pool := forkjoin.NewPool(context.Background(), 2)
	defer pool.Stop()
	grid.Add(pool, sweep, 0)

	colTimes := make([]float64, grid.Cols)
	matcher := NewMatcher(*DefaultConfig())
	_, numGood := matcher.Match(pool, grid, pano, colTimes, 0, grid.Cols, 0)
	if numGood != 0 {
		t.Errorf("expected 0 matches for an empty sweep, got %d", numGood)
	}
}
