package l8orch

import (
	"context"
	"fmt"

	"github.com/ridgeline-robotics/lio/internal/collab"
	"github.com/ridgeline-robotics/lio/internal/l1model"
	"github.com/ridgeline-robotics/lio/internal/l3grid"
	"github.com/ridgeline-robotics/lio/internal/l4pano"
	"github.com/ridgeline-robotics/lio/internal/l5match"
	"github.com/ridgeline-robotics/lio/internal/l6imu"
	"github.com/ridgeline-robotics/lio/internal/l7solve"
	"github.com/ridgeline-robotics/lio/internal/metrics"
)

// Config aggregates every layer's configuration plus the orchestrator's own
// collaborators and concurrency knobs, mirroring the teacher's
// TrackingPipelineConfig: one struct holding both sub-component settings and
// the interfaces the pipeline calls out through.
type Config struct {
	Model  l1model.Config
	Grid   l3grid.Config
	Pano   l4pano.Config
	Match  l5match.Config
	IMU    l6imu.Config
	Solver l7solve.Config

	// TF resolves the fixed lidar-to-IMU extrinsic at boot. Publisher
	// receives per-scan outputs. Both are required.
	TF        collab.TFLookup
	Publisher collab.Publisher

	// Metrics is optional; a fresh *metrics.Metrics is allocated if nil.
	Metrics *metrics.Metrics

	// Workers sizes the shared forkjoin pool (0 = runtime.NumCPU()).
	Workers int
	// GrainSize is the fork-join chunk size used for every per-scan stage
	// (sweep interp, grid score/filter, pano fuse/render, match, solve).
	// 0 runs every stage sequentially within the orchestrator's own
	// goroutine, which is both a valid and a common configuration (spec
	// §5: concurrency is an optimization, not a correctness requirement).
	GrainSize int

	// LidarFrame and IMUFrame name the frames passed to TF.LookupTF at
	// boot to resolve TImuLidar.
	LidarFrame string
	IMUFrame   string

	// GravitySamples is the number of oldest IMU queue samples averaged
	// by Trajectory.Init to estimate the gravity vector.
	GravitySamples int

	// InitialDamping, MaxDampingRetries and MaxIters come from Solver; GrainSize
	// above is shared rather than duplicated per stage, matching spec
	// §5's single `workers`/`grain_size` pair of top-level knobs.
}

// DefaultConfig returns every sub-package's documented defaults plus
// reasonable orchestrator-level knobs. Callers must still set TF and
// Publisher.
func DefaultConfig() *Config {
	return &Config{
		Model:          *l1model.DefaultConfig(),
		Grid:           *l3grid.DefaultConfig(),
		Pano:           *l4pano.DefaultConfig(),
		Match:          *l5match.DefaultConfig(),
		IMU:            *l6imu.DefaultConfig(),
		Solver:         *l7solve.DefaultConfig(),
		Workers:        0,
		GrainSize:      4,
		LidarFrame:     "lidar",
		IMUFrame:       "imu",
		GravitySamples: 20,
	}
}

// Validate checks every sub-config and the orchestrator-level fields.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if err := c.Pano.Validate(); err != nil {
		return err
	}
	if err := c.Match.Validate(); err != nil {
		return err
	}
	if err := c.IMU.Validate(); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.TF == nil {
		return fmt.Errorf("l8orch: TF collaborator is required")
	}
	if c.Publisher == nil {
		return fmt.Errorf("l8orch: Publisher collaborator is required")
	}
	if c.GrainSize < 0 {
		return fmt.Errorf("l8orch: GrainSize must be non-negative, got %d", c.GrainSize)
	}
	if c.LidarFrame == "" || c.IMUFrame == "" {
		return fmt.Errorf("l8orch: LidarFrame and IMUFrame must be set")
	}
	if c.GravitySamples <= 0 {
		return fmt.Errorf("l8orch: GravitySamples must be positive, got %d", c.GravitySamples)
	}
	return nil
}

// poolContext is split out so tests can observe/cancel it; production
// callers just use context.Background() via NewOrchestrator.
func poolContext() context.Context { return context.Background() }
