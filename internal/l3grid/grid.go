package l3grid

import (
	"math"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l2sweep"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"github.com/ridgeline-robotics/lio/internal/meanvar"
	"gonum.org/v1/gonum/spatial/r3"
)

// MatchState is the lifecycle state of a grid cell with respect to the
// panorama matcher.
type MatchState int

const (
	Unmatched MatchState = iota
	Candidate
	Matched
)

// Cell is one coarsened super-pixel over a CellCols x CellRows window of
// sweep pixels.
type Cell struct {
	Score float64 // NaN = unscored
	MC    meanvar.MeanCovar3

	State MatchState

	// Populated once State == Matched, by l5match.
	PanoRow, PanoCol int
	PanoMC           meanvar.MeanCovar3
	U                [3][3]float64 // square-root information matrix
}

// Good reports whether the cell passed both the curvature and
// mean-covariance filters.
func (c *Cell) Good(maxCurve float64, minPts int) bool {
	return !math.IsNaN(c.Score) && c.Score <= maxCurve && c.MC.Ok(minPts)
}

// Grid is the coarsened feature map over a Sweep, mirroring the sweep's
// curr column range at CellCols x CellRows resolution.
//
// Grounded on the teacher's internal/lidar/l3grid/background.go coarse
// grid over polar bins with incremental per-cell statistics — the same
// grid-over-raw-points shape, repurposed from background/foreground
// occupancy to curvature/covariance scoring.
type Grid struct {
	cfg Config

	SweepCols, SweepRows int
	Cols, Rows           int // Cols = SweepCols/CellCols, Rows = SweepRows/CellRows

	Cells   []Cell          // len Rows*Cols, row-major
	ColPose []manifold.SE3f // len Cols, one pose per grid column

	CurrStart, CurrEnd int // grid-column range touched by the last Add, half-open
}

// NewGrid allocates a Grid sized for a SweepCols x SweepRows sweep.
func NewGrid(cfg Config, sweepCols, sweepRows int) *Grid {
	cols := sweepCols / cfg.CellCols
	rows := sweepRows / cfg.CellRows
	cells := make([]Cell, cols*rows)
	for i := range cells {
		cells[i].Score = math.NaN()
	}
	return &Grid{
		cfg:       cfg,
		SweepCols: sweepCols,
		SweepRows: sweepRows,
		Cols:      cols,
		Rows:      rows,
		Cells:     cells,
		ColPose:   make([]manifold.SE3f, cols),
	}
}

// At returns the cell at (gridRow, gridCol).
func (g *Grid) At(row, col int) *Cell { return &g.Cells[row*g.Cols+col] }

// Grid2Sweep maps grid coordinates to the sweep coordinates of the cell's
// top-left sweep pixel: exact integer scaling.
func (g *Grid) Grid2Sweep(row, col int) (sweepRow, sweepCol int) {
	return row * g.cfg.CellRows, col * g.cfg.CellCols
}

// Sweep2Grid maps a sweep pixel to the grid cell that contains it.
func (g *Grid) Sweep2Grid(sweepRow, sweepCol int) (row, col int) {
	return sweepRow / g.cfg.CellRows, sweepCol / g.cfg.CellCols
}

// Add scores and filters the grid columns covered by sweep's current
// column range, returning (numValidCells, numGoodCells). Preconditions:
// sweep's curr range must be cell-aligned (CurrStart/CurrEnd divisible by
// CellCols).
func (g *Grid) Add(pool *forkjoin.Pool, sweep *l2sweep.Sweep, gsize int) (numValid, numGood int) {
	gStart, gEnd := g.currGridColumns(sweep)
	g.Score(pool, sweep, gStart, gEnd, gsize)
	return g.Filter(pool, sweep, gStart, gEnd, gsize)
}

func (g *Grid) currGridColumns(sweep *l2sweep.Sweep) (start, end int) {
	s, e := sweep.Curr()
	return s / g.cfg.CellCols, e / g.cfg.CellCols
}

// Score computes the curvature/variance score for every cell in grid
// columns [gStart, gEnd), using the middle sweep row of each cell's row
// block as the representative single-row window (spec §4.3.1).
func (g *Grid) Score(pool *forkjoin.Pool, sweep *l2sweep.Sweep, gStart, gEnd, gsize int) {
	n := gEnd - gStart
	pool.Range(n, gsize, func(a, b int) {
		ranges := make([]float64, 0, g.cfg.CellCols)
		for i := a; i < b; i++ {
			gc := gStart + i
			sweepColStart := gc * g.cfg.CellCols
			for gr := 0; gr < g.Rows; gr++ {
				sweepRowStart := gr * g.cfg.CellRows
				midRow := sweepRowStart + g.cfg.CellRows/2

				ranges = ranges[:0]
				for sc := sweepColStart; sc < sweepColStart+g.cfg.CellCols; sc++ {
					px := sweep.At(midRow, sc)
					if px.Valid() {
						ranges = append(ranges, float64(px.Range))
					}
				}
				g.At(gr, gc).Score = meanvar.CurvatureScore(ranges)
			}
		}
	})
}

// Filter accumulates the mean-covariance over each cell's CellCols x
// CellRows window in grid columns [gStart, gEnd) and marks good cells as
// Candidate. Returns (numValidCells, numGoodCells) over that range.
func (g *Grid) Filter(pool *forkjoin.Pool, sweep *l2sweep.Sweep, gStart, gEnd, gsize int) (numValid, numGood int) {
	n := gEnd - gStart
	var validCounts, goodCounts = make([]int, n), make([]int, n)

	pool.Range(n, gsize, func(a, b int) {
		for i := a; i < b; i++ {
			gc := gStart + i
			sweepColStart := gc * g.cfg.CellCols
			for gr := 0; gr < g.Rows; gr++ {
				sweepRowStart := gr * g.cfg.CellRows
				cell := g.At(gr, gc)
				cell.MC.Reset()
				cell.State = Unmatched

				for sr := sweepRowStart; sr < sweepRowStart+g.cfg.CellRows; sr++ {
					for sc := sweepColStart; sc < sweepColStart+g.cfg.CellCols; sc++ {
						px := sweep.At(sr, sc)
						if !px.Valid() {
							continue
						}
						cell.MC.Add(r3.Vec{X: float64(px.X), Y: float64(px.Y), Z: float64(px.Z)})
					}
				}

				if !math.IsNaN(cell.Score) {
					validCounts[i]++
				}
				if cell.Good(g.cfg.MaxCurve, g.cfg.MinPts) {
					cell.State = Candidate
					goodCounts[i]++
				}
			}
		}
	})

	for i := 0; i < n; i++ {
		numValid += validCounts[i]
		numGood += goodCounts[i]
	}
	return numValid, numGood
}

// Interp sets each grid column's pose to the sweep's interpolated pose at
// that column's first sweep column (one pose per grid column, coarser
// than sweep columns, per spec §4.3).
func (g *Grid) Interp(sweep *l2sweep.Sweep) {
	s, e := sweep.Curr()
	for gc := s / g.cfg.CellCols; gc < e/g.cfg.CellCols; gc++ {
		_, sweepCol := g.Grid2Sweep(0, gc)
		g.ColPose[gc] = sweep.TfPanoSens[sweepCol]
	}
}
