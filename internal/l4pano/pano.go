package l4pano

import (
	"encoding/binary"
	"math"

	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l1model"
	"github.com/ridgeline-robotics/lio/internal/l2sweep"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"github.com/ridgeline-robotics/lio/internal/meanvar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pano is the rolling panoramic range image that stands in for the local
// map. Two buffers (buf, buf2) are allocated once at init (arena
// pattern); Render logically swaps them.
//
// Grounded on original_source/sv/llol/pano.cpp/pano.h (DepthPixel,
// FuseDepth, Render/RenderRow); ported for semantics, not code (the C++
// cv::Mat buffers become Go slices). The dual-buffer swap idiom matches
// the teacher's internal/lidar/l3grid/background.go primary/snapshot
// buffer split.
type Pano struct {
	cfg   Config
	model *l1model.Model

	buf  []Pixel // primary buffer, row-major Rows x Cols
	buf2 []Pixel // render scratch buffer, same dimensions

	sweepCount int // sweeps fused since last Render
}

// NewPano allocates a Pano sized by model.
func NewPano(cfg Config, model *l1model.Model) *Pano {
	n := model.Rows() * model.Cols()
	return &Pano{
		cfg:   cfg,
		model: model,
		buf:   make([]Pixel, n),
		buf2:  make([]Pixel, n),
	}
}

// Rows returns the panorama height.
func (p *Pano) Rows() int { return p.model.Rows() }

// Cols returns the panorama width.
func (p *Pano) Cols() int { return p.model.Cols() }

// At returns the pixel at (row, col) of the primary buffer.
func (p *Pano) At(row, col int) Pixel { return p.buf[row*p.model.Cols()+col] }

func (p *Pano) idx(row, col int) int { return row*p.model.Cols() + col }

// Project forwards a pano-frame point through the panorama's LidarModel,
// returning the pixel and whether it fell within the image bounds. A
// convenience wrapper so callers outside this package (the matcher) never
// need to reach into the model directly.
func (p *Pano) Project(pt r3.Vec) (row, col int, ok bool) {
	rg := r3.Norm(pt)
	if rg <= 0 {
		return 0, 0, false
	}
	col, row = p.model.Forward(pt.X, pt.Y, pt.Z, rg)
	return row, col, col >= 0 && row >= 0
}

// Add fuses every valid point in sweep's [colStart, colEnd) column range
// into the panorama, transforming each by its column's tf_p_s pose.
// Returns the number of pixels actually fused (added or updated).
func (p *Pano) Add(pool *forkjoin.Pool, sweep *l2sweep.Sweep, colStart, colEnd, gsize int) int {
	n := colEnd - colStart
	counts := make([]int, n)
	pool.Range(n, gsize, func(a, b int) {
		for i := a; i < b; i++ {
			col := colStart + i
			counts[i] = p.addColumn(sweep, col)
		}
	})
	p.sweepCount++
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

func (p *Pano) addColumn(sweep *l2sweep.Sweep, col int) int {
	n := 0
	tf := sweep.TfPanoSens[col].ToSE3()
	for row := 0; row < sweep.Rows; row++ {
		px := sweep.At(row, col)
		if !px.Valid() {
			continue
		}
		ptSensor := r3.Vec{X: float64(px.X), Y: float64(px.Y), Z: float64(px.Z)}
		ptPano := tf.Act(ptSensor)
		rgPano := r3.Norm(ptPano)
		if rgPano < p.cfg.MinRange {
			continue
		}

		panoCol, panoRow := p.model.Forward(ptPano.X, ptPano.Y, ptPano.Z, rgPano)
		if panoCol < 0 || panoRow < 0 {
			continue
		}
		if p.fuseDepth(panoRow, panoCol, rgPano) {
			n++
		}
	}
	return n
}

// fuseDepth applies the spec §4.4 / original_source FuseDepth policy at a
// single pixel. Returns true if the pixel was added or updated, false if
// it was only decremented (occlusion/disagreement).
func (p *Pano) fuseDepth(row, col int, rg float64) bool {
	idx := p.idx(row, col)
	px := &p.buf[idx]

	if px.Empty() {
		px.setRange(rg)
		px.Cnt = uint16(p.cfg.MaxCnt / 2)
		return true
	}

	rg0 := px.Range()
	if math.Abs(rg-rg0)/rg0 < p.cfg.RangeRatio {
		rg1 := (rg0*float64(px.Cnt) + rg) / float64(px.Cnt+1)
		px.setRange(rg1)
		if int(px.Cnt) < p.cfg.MaxCnt {
			px.Cnt++
		}
		return true
	}

	if px.Cnt > 0 {
		px.Cnt--
	}
	if px.Cnt == 0 {
		px.Raw = 0
	}
	return false
}

// ShouldRender reports whether a re-framing should be triggered this
// scan: translation since the last render exceeds RenderTransThresh, or
// matchRatio falls below RenderMatchRatioFloor, or the sweep count since
// the last render exceeds RenderSweepCountMax.
func (p *Pano) ShouldRender(transSinceRender, matchRatio float64) bool {
	return transSinceRender > p.cfg.RenderTransThresh ||
		matchRatio < p.cfg.RenderMatchRatioFloor ||
		p.sweepCount > p.cfg.RenderSweepCountMax
}

// Render re-expresses the panorama in a new frame: for each non-empty
// pixel of the current buffer, back-project to 3D, transform by tf21,
// re-project into the secondary buffer (closest-surface wins on
// contention), then swap buffers. Returns the number of pixels
// successfully re-projected. If cfg.AlignGravity is set, the rotational
// part of tf21 is ignored (render rotation forced to identity).
func (p *Pano) Render(pool *forkjoin.Pool, tf21 manifold.SE3, gsize int) int {
	for i := range p.buf2 {
		p.buf2[i] = Pixel{}
	}
	if p.cfg.AlignGravity {
		tf21 = manifold.SE3{Rot: manifold.Identity().Rot, Trans: tf21.Trans}
	}

	rows := p.model.Rows()
	counts := make([]int, rows)
	pool.Range(rows, gsize, func(a, b int) {
		for r := a; r < b; r++ {
			counts[r] = p.renderRow(tf21, r)
		}
	})

	p.buf, p.buf2 = p.buf2, p.buf
	p.sweepCount = 0

	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

func (p *Pano) renderRow(tf21 manifold.SE3, row int) int {
	n := 0
	cols := p.model.Cols()
	for col := 0; col < cols; col++ {
		px1 := p.At(row, col)
		if px1.Empty() {
			continue
		}
		rg1 := px1.Range()

		x1, y1, z1 := p.model.Backward(row, col, rg1)
		pt2 := tf21.Act(r3.Vec{X: x1, Y: y1, Z: z1})
		rg2 := r3.Norm(pt2)
		if rg2 >= MaxRange {
			continue
		}

		col2, row2 := p.model.Forward(pt2.X, pt2.Y, pt2.Z, rg2)
		if col2 < 0 || row2 < 0 {
			continue
		}

		if p.setBufAt(row2, col2, rg2) {
			n++
		}
	}
	return n
}

// setBufAt writes rg into buf2 at (row, col), honoring occlusion: a pixel
// already written this render is overwritten when the new range is within
// RangeRatio of it or closer than it (closest-surface-wins re-rendering);
// a farther, disagreeing range is discarded.
func (p *Pano) setBufAt(row, col int, rg float64) bool {
	idx := p.idx(row, col)
	px := &p.buf2[idx]
	if px.Empty() {
		px.setRange(rg)
		px.Cnt = 1
		return true
	}
	rg0 := px.Range()
	if math.Abs(rg-rg0)/rg0 < p.cfg.RangeRatio {
		px.setRange(rg)
		return true
	}
	if rg < rg0 {
		// closest-surface wins: the new (closer) point replaces the
		// previously written, more distant one.
		px.setRange(rg)
		return true
	}
	return false
}

// Encode serializes the primary buffer into the wire format of spec §6:
// little-endian (u16 range units of 1/512 m, u16 count) pairs, row-major.
func (p *Pano) Encode() []byte {
	out := make([]byte, len(p.buf)*4)
	for i, px := range p.buf {
		binary.LittleEndian.PutUint16(out[i*4:], px.Raw)
		binary.LittleEndian.PutUint16(out[i*4+2:], px.Cnt)
	}
	return out
}

// MeanCovarAt accumulates the 3D mean-covariance over a size x size
// window of the primary buffer centered at (row, col), keeping only
// pixels whose range is within RangeRatio of seedRange (occlusion-aware
// windowing, per spec §4.5's matcher).
func (p *Pano) MeanCovarAt(row, col, size int, seedRange float64) meanvar.MeanCovar3 {
	var mc meanvar.MeanCovar3
	half := size / 2
	rows, cols := p.model.Rows(), p.model.Cols()

	for dr := -half; dr <= half; dr++ {
		r := row + dr
		if r < 0 || r >= rows {
			continue
		}
		for dc := -half; dc <= half; dc++ {
			c := col + dc
			if c < 0 || c >= cols {
				continue
			}
			px := p.At(r, c)
			if px.Empty() {
				continue
			}
			rg := px.Range()
			if math.Abs(rg-seedRange)/seedRange >= p.cfg.RangeRatio {
				continue
			}
			x, y, z := p.model.Backward(r, c, rg)
			mc.Add(r3.Vec{X: x, Y: y, Z: z})
		}
	}
	return mc
}
