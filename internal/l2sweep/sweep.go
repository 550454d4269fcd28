package l2sweep

import (
	"fmt"
	"sort"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/manifold"
)

// Pixel is a single range-precomputed sensor-frame point. Range <= 0
// encodes an invalid/missing return.
type Pixel struct {
	X, Y, Z, Range float32
}

// Valid reports whether the pixel carries a usable return.
func (p Pixel) Valid() bool { return p.Range > 0 }

// Scan is a contiguous column slice of a sweep, delivered as one ingest
// message. Pixels is row-major over (End-Start) columns by Rows rows.
type Scan struct {
	Rows         int
	Start, End   int // half-open column range within the full sweep width
	T0           float64 // seconds, wall time of column Start
	Dt           float64 // seconds per column
	Pixels       []Pixel // len Rows*(End-Start), row-major
}

// At returns the pixel at sweep-relative column col (Start <= col < End)
// and row.
func (s *Scan) At(row, col int) Pixel {
	width := s.End - s.Start
	return s.Pixels[row*width+(col-s.Start)]
}

// ColTime returns the timestamp assigned to column col.
func (s *Scan) ColTime(col int) float64 {
	return s.T0 + float64(col-s.Start)*s.Dt
}

// Sweep is the full-width, image-shaped point accumulator covering one
// revolution. It is allocated once (arena pattern) and mutated in place
// by successive Add calls; no per-scan heap churn on the hot path.
//
// Grounded on original_source/sv/llol/scan.h's LidarScan/ScanBase buffer
// shape; the pre-sized, in-place mutation idiom follows the teacher's
// internal/lidar/arena.go.
type Sweep struct {
	Cols, Rows int
	Pixels     []Pixel      // len Rows*Cols, row-major
	TfPanoSens []manifold.SE3f // len Cols; tf_p_s per column

	CurrStart, CurrEnd int // last-ingested column range [s, e)
	T0, Dt             float64
}

// NewSweep allocates a Sweep of the given image dimensions.
func NewSweep(cols, rows int) *Sweep {
	return &Sweep{
		Cols:       cols,
		Rows:       rows,
		Pixels:     make([]Pixel, cols*rows),
		TfPanoSens: make([]manifold.SE3f, cols),
	}
}

// At returns the pixel at (row, col) in full sweep coordinates.
func (s *Sweep) At(row, col int) Pixel {
	return s.Pixels[row*s.Cols+col]
}

// Curr returns the most recently ingested column range.
func (s *Sweep) Curr() (start, end int) { return s.CurrStart, s.CurrEnd }

// ColTime returns the timestamp assigned to sweep column col, per the
// most recently ingested scan's (t0, dt, start).
func (s *Sweep) ColTime(col int) float64 {
	return s.T0 + float64(col-s.CurrStart)*s.Dt
}

// Add copies scan's pixel slab into the sweep at columns scan.Start:scan.End
// and records scan's (t0, dt) as the sweep's current timing. Fails only on
// a precondition violation (dimension mismatch).
func (s *Sweep) Add(scan *Scan) error {
	if scan.Rows != s.Rows {
		return fmt.Errorf("l2sweep: scan rows %d != sweep rows %d", scan.Rows, s.Rows)
	}
	if scan.Start < 0 || scan.End > s.Cols || scan.Start >= scan.End {
		return fmt.Errorf("l2sweep: scan column range [%d,%d) invalid for sweep width %d", scan.Start, scan.End, s.Cols)
	}
	width := scan.End - scan.Start
	for row := 0; row < s.Rows; row++ {
		src := scan.Pixels[row*width : row*width+width]
		dst := s.Pixels[row*s.Cols+scan.Start : row*s.Cols+scan.End]
		copy(dst, src)
	}
	s.CurrStart, s.CurrEnd = scan.Start, scan.End
	s.T0, s.Dt = scan.T0, scan.Dt
	return nil
}

// Interp fills TfPanoSens[c] for every column c in the current range by
// interpolating between successive trajectory knots on the manifold.
// knotTimes must be sorted ascending and len(knotTimes) == len(knotPoses).
// Rotation is interpolated via normalized quaternion lerp-then-normalize;
// translation is interpolated linearly (manifold.Lerp). gsize selects
// fork-join granularity (0 = sequential).
func (s *Sweep) Interp(pool *forkjoin.Pool, knotTimes []float64, knotPoses []manifold.SE3, gsize int) error {
	if len(knotTimes) != len(knotPoses) {
		return fmt.Errorf("l2sweep: knotTimes/knotPoses length mismatch (%d vs %d)", len(knotTimes), len(knotPoses))
	}
	if len(knotTimes) < 2 {
		return fmt.Errorf("l2sweep: need at least 2 trajectory knots to interpolate, got %d", len(knotTimes))
	}

	start, end := s.CurrStart, s.CurrEnd
	n := end - start
	pool.Range(n, gsize, func(a, b int) {
		for i := a; i < b; i++ {
			col := start + i
			t := s.ColTime(col)
			lo := bracketKnot(knotTimes, t)
			hi := lo + 1
			denom := knotTimes[hi] - knotTimes[lo]
			alpha := 0.0
			if denom > 0 {
				alpha = (t - knotTimes[lo]) / denom
			}
			if alpha < 0 {
				alpha = 0
			} else if alpha > 1 {
				alpha = 1
			}
			interp := manifold.Lerp(knotPoses[lo], knotPoses[hi], alpha)
			s.TfPanoSens[col] = manifold.FromSE3(interp)
		}
	})
	return nil
}

// bracketKnot returns the index lo such that knotTimes[lo] <= t <=
// knotTimes[lo+1], clamped so lo+1 is always a valid index.
func bracketKnot(knotTimes []float64, t float64) int {
	lo := sort.Search(len(knotTimes), func(i int) bool { return knotTimes[i] > t }) - 1
	if lo < 0 {
		lo = 0
	}
	if lo > len(knotTimes)-2 {
		lo = len(knotTimes) - 2
	}
	return lo
}
