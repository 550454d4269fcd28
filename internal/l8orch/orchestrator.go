package l8orch

import (
	"log"

	"github.com/google/uuid"
	"github.com/ridgeline-robotics/lio/internal/forkjoin"
	"github.com/ridgeline-robotics/lio/internal/l1model"
	"github.com/ridgeline-robotics/lio/internal/l2sweep"
	"github.com/ridgeline-robotics/lio/internal/l3grid"
	"github.com/ridgeline-robotics/lio/internal/l4pano"
	"github.com/ridgeline-robotics/lio/internal/l5match"
	"github.com/ridgeline-robotics/lio/internal/l6imu"
	"github.com/ridgeline-robotics/lio/internal/l7solve"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"github.com/ridgeline-robotics/lio/internal/metrics"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxKnotWindow bounds the trajectory-knot history kept for sweep/grid
// bracket interpolation, so a long-running Orchestrator doesn't grow the
// knot slices without limit.
const maxKnotWindow = 4096

// Orchestrator owns every layer's mutable per-run state and drives it
// through one scan cycle at a time. It is not safe for concurrent PushScan
// calls; PushIMU may run on a separate goroutine from PushScan, since
// ingestion and processing are meant to run independently (spec §5), with
// l6imu.Queue's own mutex as the only shared synchronization point.
//
// Grounded on the teacher's internal/lidar/pipeline/tracking_pipeline.go:
// a typed Config holding collaborator interfaces plus tunables, and a
// single driving method that owns every stage's state across calls.
type Orchestrator struct {
	cfg Config

	// runID tags every log line this Orchestrator emits, so a fleet
	// running several instances can separate their interleaved output.
	runID uuid.UUID

	pool *forkjoin.Pool

	model   *l1model.Model
	sweep   *l2sweep.Sweep
	grid    *l3grid.Grid
	pano    *l4pano.Pano
	imuq    *l6imu.Queue
	traj    *l6imu.Trajectory
	matcher *l5match.Matcher
	solver  *l7solve.GicpSolver

	metrics *metrics.Metrics

	initialized   bool
	tImuLidar     manifold.SE3
	haveTImuLidar bool

	// knotTimes/knotPoses are the bracket arrays handed to Sweep.Interp,
	// built from Trajectory.PredictNew's output. gridColTimes mirrors
	// Grid.ColPose: one timestamp per absolute grid column, persisted
	// across cycles since the grid is a ring buffer over one revolution.
	knotTimes    []float64
	knotPoses    []manifold.SE3
	gridColTimes []float64

	expectedScanStart int // -1 until the first scan arrives

	lastIMUTime     float64
	haveLastIMUTime bool

	poseHistory []manifold.SE3
}

// NewOrchestrator validates cfg and allocates every owned layer.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &metrics.Metrics{}
	}

	model := l1model.NewModel(cfg.Model)
	sweep := l2sweep.NewSweep(model.Cols(), model.Rows())
	grid := l3grid.NewGrid(cfg.Grid, model.Cols(), model.Rows())

	return &Orchestrator{
		cfg:               cfg,
		runID:             uuid.New(),
		pool:              forkjoin.NewPool(poolContext(), cfg.Workers),
		model:             model,
		sweep:             sweep,
		grid:              grid,
		pano:              l4pano.NewPano(cfg.Pano, model),
		imuq:              l6imu.NewQueue(cfg.IMU.Capacity),
		traj:              l6imu.NewTrajectory(),
		matcher:           l5match.NewMatcher(cfg.Match),
		solver:            l7solve.NewGicpSolver(cfg.Solver),
		metrics:           cfg.Metrics,
		gridColTimes:      make([]float64, grid.Cols),
		expectedScanStart: -1,
	}, nil
}

// Close stops the shared worker pool. Call once, at shutdown.
func (o *Orchestrator) Close() { o.pool.Stop() }

// Metrics returns the orchestrator's counter set.
func (o *Orchestrator) Metrics() *metrics.Metrics { return o.metrics }

// RunID returns this Orchestrator's correlation id, stable for its
// lifetime, for tagging logs and published records across a fleet.
func (o *Orchestrator) RunID() uuid.UUID { return o.runID }

// PushIMU ingests one inertial sample. Samples that arrive out of
// timestamp order are dropped and counted rather than breaking the
// queue's chronological invariant (spec §7).
func (o *Orchestrator) PushIMU(s l6imu.Sample) {
	if o.haveLastIMUTime && s.Time <= o.lastIMUTime {
		log.Printf("[l8orch] dropping out-of-order IMU sample t=%.6f (last t=%.6f)", s.Time, o.lastIMUTime)
		o.metrics.IncIMUSequenceGaps()
		return
	}
	o.lastIMUTime = s.Time
	o.haveLastIMUTime = true
	o.imuq.Add(s)
}

// PushScan runs one full registration cycle over scan: fuse the sweep
// range about to be overwritten into the panorama, ingest the scan,
// score/filter its grid cells, predict and match against the map, solve
// for the pose correction, re-frame the map if warranted, and publish.
// Every failure mode documented in spec §7 degrades to "no trajectory
// update this scan" rather than propagating an error — PushScan has no
// return value because nothing here is a caller-actionable failure.
func (o *Orchestrator) PushScan(scan *l2sweep.Scan) {
	if !o.tryInit(scan.T0) {
		o.metrics.IncScansDropped()
		return
	}
	o.checkScanSequence(scan)

	// The column range about to be overwritten still holds the poses
	// this package wrote the last time the ring buffer wrapped here.
	o.pano.Add(o.pool, o.sweep, scan.Start, scan.End, o.cfg.GrainSize)

	if err := o.sweep.Add(scan); err != nil {
		log.Printf("[l8orch] dropping scan: %v", err)
		o.metrics.IncScansDropped()
		return
	}

	_, numGood := o.grid.Add(o.pool, o.sweep, o.cfg.GrainSize)

	gStart, gEnd := scan.Start/o.cfg.Grid.CellCols, scan.End/o.cfg.Grid.CellCols
	colTimes := o.recordGridColumnTimes(gStart, gEnd)

	predicted, err := o.traj.PredictNew(o.imuq, colTimes)
	if err != nil {
		log.Printf("[l8orch] predict failed: %v", err)
		return
	}
	o.appendKnots(colTimes, predicted)

	if err := o.sweep.Interp(o.pool, o.knotTimes, o.knotPoses, o.cfg.GrainSize); err != nil {
		log.Printf("[l8orch] sweep interp failed: %v", err)
		return
	}
	o.grid.Interp(o.sweep)

	matches, numMatched := o.matcher.Match(o.pool, o.grid, o.pano, o.gridColTimes, gStart, gEnd, o.cfg.GrainSize)
	if numMatched == 0 {
		log.Printf("[l8orch] no correspondences this scan, trajectory unchanged")
	} else {
		windowStart, windowEnd := colTimes[0], colTimes[len(colTimes)-1]
		result, summary := o.solver.Solve(o.pool, o.cfg.GrainSize, matches, o.grid.ColPose, windowStart, windowEnd)
		if !summary.IsConverged() {
			o.metrics.IncSolverNonConverged()
		}
		o.applyCorrection(gStart, gEnd, windowStart, windowEnd, result)
	}

	matchRatio := ratio(numMatched, numGood)
	transSinceRender := r3.Norm(o.traj.TfPanoLidar().Trans)
	if o.pano.ShouldRender(transSinceRender, matchRatio) {
		o.render()
	}

	o.publish(scan)
	o.metrics.IncScansProcessed()
}

// tryInit lazily resolves the fixed lidar extrinsic and the gravity
// direction, both required before the first trajectory knot can exist.
// It is called on every scan until it succeeds; every precondition it
// waits on (extrinsic lookup, a full IMU queue, a stationary mean accel)
// is an ordinary boot-time condition, not a fault (spec §7).
func (o *Orchestrator) tryInit(t0 float64) bool {
	if o.initialized {
		return true
	}
	if !o.haveTImuLidar {
		tf, ok := o.cfg.TF.LookupTF(o.cfg.IMUFrame, o.cfg.LidarFrame)
		if !ok {
			log.Printf("[l8orch] waiting on %s -> %s extrinsic", o.cfg.IMUFrame, o.cfg.LidarFrame)
			return false
		}
		o.tImuLidar = tf
		o.haveTImuLidar = true
	}
	if !o.imuq.Full() {
		return false
	}
	meanAccel, _, ok := o.imuq.CalcMean(o.cfg.GravitySamples)
	if !ok {
		return false
	}
	if err := o.traj.Init(o.tImuLidar, meanAccel, t0); err != nil {
		log.Printf("[l8orch] trajectory init failed: %v", err)
		return false
	}
	o.knotTimes = []float64{t0}
	o.knotPoses = []manifold.SE3{o.traj.TOdomPano.Inverse().Mul(o.traj.Knots[0].Pose)}
	o.initialized = true
	log.Printf("[l8orch %s] trajectory initialized at t=%.6f", o.runID, t0)
	return true
}

// checkScanSequence flags a gap between the end of the previously
// ingested scan and the start of this one. Detection, not prevention:
// processing continues on the scan as received (spec §7).
func (o *Orchestrator) checkScanSequence(scan *l2sweep.Scan) {
	if o.expectedScanStart >= 0 && scan.Start != o.expectedScanStart {
		log.Printf("[l8orch] scan sequence gap: expected start %d, got %d", o.expectedScanStart, scan.Start)
		o.metrics.IncScanSequenceGaps()
	}
	o.expectedScanStart = scan.End % o.sweep.Cols
}

// recordGridColumnTimes computes and records the representative timestamp
// of every grid column in [gStart, gEnd), both for Trajectory.PredictNew's
// input and for the persistent per-column array the matcher reads.
func (o *Orchestrator) recordGridColumnTimes(gStart, gEnd int) []float64 {
	times := make([]float64, 0, gEnd-gStart)
	for gc := gStart; gc < gEnd; gc++ {
		_, sweepCol := o.grid.Grid2Sweep(0, gc)
		t := o.sweep.ColTime(sweepCol)
		times = append(times, t)
		o.gridColTimes[gc] = t
	}
	return times
}

// appendKnots grows the bracket-interpolation arrays and trims the front
// once they exceed maxKnotWindow.
func (o *Orchestrator) appendKnots(times []float64, poses []manifold.SE3) {
	o.knotTimes = append(o.knotTimes, times...)
	o.knotPoses = append(o.knotPoses, poses...)
	if excess := len(o.knotTimes) - maxKnotWindow; excess > 0 {
		o.knotTimes = o.knotTimes[excess:]
		o.knotPoses = o.knotPoses[excess:]
	}
}

// applyCorrection folds the solved increment into every new grid column's
// pose: Grid.ColPose holds the IMU-predicted prior used by the solver, and
// Result.AtColumnFraction gives the refinement to compose onto it at that
// column's time fraction through the solve window. The refined pose is
// also written back across the column's full CellCols sweep-column block,
// so the next time this range of the ring buffer is fused into the
// panorama (this cycle's very first step, one revolution from now) it
// carries the solved correction rather than the raw IMU prediction.
func (o *Orchestrator) applyCorrection(gStart, gEnd int, windowStart, windowEnd float64, result l7solve.Result) {
	denom := windowEnd - windowStart
	for gc := gStart; gc < gEnd; gc++ {
		alpha := 0.0
		if denom > 0 {
			alpha = (o.gridColTimes[gc] - windowStart) / denom
		}
		prior := o.grid.ColPose[gc].ToSE3()
		corrected := prior.Mul(manifold.Exp(result.AtColumnFraction(alpha)))
		o.grid.ColPose[gc] = manifold.FromSE3(corrected)

		_, sweepColStart := o.grid.Grid2Sweep(0, gc)
		for sc := sweepColStart; sc < sweepColStart+o.cfg.Grid.CellCols && sc < o.sweep.Cols; sc++ {
			o.sweep.TfPanoSens[sc] = manifold.FromSE3(corrected)
		}
	}
}

// render re-centers the panorama on the current lidar pose: the new pano
// frame is defined as the lidar's pose in the old frame, so both Render's
// point transform and MoveFrame's re-basing argument are its inverse
// (old-pano coordinates to new-pano coordinates).
func (o *Orchestrator) render() {
	tNewOld := o.traj.TfPanoLidar().Inverse()
	o.pano.Render(o.pool, tNewOld, o.cfg.GrainSize)
	o.traj.MoveFrame(tNewOld)
	o.metrics.IncRendersTriggered()
}

// publish sends this cycle's pose, accumulated path, and map snapshot to
// the collaborator.
func (o *Orchestrator) publish(scan *l2sweep.Scan) {
	tOdomLidar := o.traj.TOdomPano.Mul(o.traj.TfPanoLidar())
	o.poseHistory = append(o.poseHistory, tOdomLidar)

	o.cfg.Publisher.PublishPose(scan.T0, tOdomLidar)
	o.cfg.Publisher.PublishPath(o.poseHistory)
	o.cfg.Publisher.PublishPano(scan.T0, o.pano.Cols(), o.pano.Rows(), o.pano.Encode())
}

func ratio(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 1
	}
	return float64(numerator) / float64(denominator)
}
