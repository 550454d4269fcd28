package l5match

import (
	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l3grid"
	"github.com/ridgeline-robotics/lio/internal/l4pano"
	"github.com/ridgeline-robotics/lio/internal/meanvar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Correspondence is one GICP correspondence between a sweep-side grid
// cell Gaussian and a pano-side window Gaussian, with a precomputed
// square-root information matrix.
//
// Grounded on original_source/sv/llol/match.h's PointMatch; Valid()
// mirrors its four-part `ok()` gate exactly (px_s.x >= 0 && px_p.x >= 0
// && mc_s.ok() && mc_p.ok()) rather than the looser "n >= min_pts"
// summary in the spec prose.
type Correspondence struct {
	GridRow, GridCol int
	ColTime          float64 // timestamp of the cell's grid column, for the solver's per-column scaling

	SweepMean r3.Vec
	PanoRow   int
	PanoCol   int
	PanoMean  r3.Vec

	sweepValid bool
	panoValid  bool
	sweepMC    meanvar.MeanCovar3
	panoMC     meanvar.MeanCovar3

	U [3][3]float64
}

// Valid reports whether both the sweep and pano pixels are in-bounds and
// both Gaussians are valid — the gate that must hold for a correspondence
// to be handed to the solver.
func (c *Correspondence) Valid(minPts int) bool {
	return c.sweepValid && c.panoValid && c.sweepMC.Ok(minPts) && c.panoMC.Ok(minPts)
}

// Matcher implements Layer 5: projecting good grid cells into the
// panorama and forming GICP correspondences.
//
// Grounded on original_source/sv/llol/match.h's ProjMatcher; kept as a
// standalone component (not a Grid method) precisely because the grid
// (layer 3) must not depend on the panorama (layer 4).
type Matcher struct {
	cfg Config
}

// NewMatcher constructs a Matcher from cfg.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Match projects every good cell in grid columns [gStart, gEnd) into
// pano, recomputes the pano-side Gaussian, and (if enough pano pixels
// qualify) computes the square-root information matrix. Returns the
// accepted correspondences and the count of good matches. Candidates
// that project outside pano bounds are dropped silently (spec §4.3 tie
// break); candidates with a degenerate (non-PD) covariance sum are
// skipped per spec §7.
func (m *Matcher) Match(pool *forkjoin.Pool, grid *l3grid.Grid, pano *l4pano.Pano, colTimes []float64, gStart, gEnd, gsize int) ([]Correspondence, int) {
	n := gEnd - gStart
	// perCol is indexed by the pool.Range loop index i, not by grid
	// column or row: pool.Range hands each worker a disjoint [a, b) range
	// of i, so perCol[i] is written by exactly one worker. Bucketing by
	// grid row instead (as an earlier version did) is unsafe here because
	// every worker's inner loop walks all grid.Rows and would append to
	// the same row bucket concurrently with other workers.
	perCol := make([][]Correspondence, n)

	pool.Range(n, gsize, func(a, b int) {
		for i := a; i < b; i++ {
			gc := gStart + i
			var cellMatches []Correspondence
			for gr := 0; gr < grid.Rows; gr++ {
				cell := grid.At(gr, gc)
				if cell.State != l3grid.Candidate {
					continue
				}
				corr, ok := m.matchCell(grid, pano, cell, gr, gc, colTimes[gc])
				if !ok {
					continue
				}
				cell.State = l3grid.Matched
				cell.PanoRow, cell.PanoCol = corr.PanoRow, corr.PanoCol
				cell.PanoMC = corr.panoMC
				cell.U = corr.U
				cellMatches = append(cellMatches, corr)
			}
			perCol[i] = cellMatches
		}
	})

	var matches []Correspondence
	for _, col := range perCol {
		matches = append(matches, col...)
	}
	return matches, len(matches)
}

func (m *Matcher) matchCell(grid *l3grid.Grid, pano *l4pano.Pano, cell *l3grid.Cell, gridRow, gridCol int, colTime float64) (Correspondence, bool) {
	sweepMean := cell.MC.Mean()
	colPose := grid.ColPose[gridCol].ToSE3()
	panoPt := colPose.Act(sweepMean)

	panoRow, panoCol, ok := pano.Project(panoPt)
	if !ok {
		return Correspondence{}, false
	}

	rg := r3.Norm(panoPt)
	if rg < m.cfg.MinDist {
		// too close to the sensor for a reliable pano-side window;
		// matches original_source/sv/llol/match.h's min_dist guard.
		return Correspondence{}, false
	}
	winSize := 2*m.cfg.HalfRows + 1
	panoMC := pano.MeanCovarAt(panoRow, panoCol, winSize, rg)
	if !panoMC.Ok(m.cfg.MinPts) {
		return Correspondence{}, false
	}

	U, ok := computeSqrtInfo(cell.MC.Covariance(), panoMC.Covariance(), m.cfg.CovLambda)
	if !ok {
		return Correspondence{}, false
	}

	corr := Correspondence{
		GridRow: gridRow, GridCol: gridCol,
		ColTime:    colTime,
		SweepMean:  sweepMean,
		PanoRow:    panoRow,
		PanoCol:    panoCol,
		PanoMean:   panoMC.Mean(),
		sweepValid: true,
		panoValid:  true,
		sweepMC:    cell.MC,
		panoMC:     panoMC,
		U:          triToArray(U),
	}
	if !corr.Valid(m.cfg.MinPts) {
		return Correspondence{}, false
	}
	return corr, true
}
