// Command lio-replay drives the Orchestrator over a recorded scan+IMU
// file, logging the resulting pose to standard error (the log package's
// default output).
//
// Usage:
//
//	go run ./cmd/lio-replay -input recording.bin
//
// Flags:
//
//	-input       Path to a replay recording (required)
//	-lidar-frame Lidar frame name passed to the extrinsic lookup
//	-imu-frame   IMU frame name passed to the extrinsic lookup
//	-workers     Fork-join pool size (0 = runtime.NumCPU())
//	-grain-size  Fork-join chunk size (0 = run every stage sequentially)
package main

import (
	"errors"
	"flag"
	"io"
	"log"

	"github.com/ridgeline-robotics/lio/internal/l8orch"
	"github.com/ridgeline-robotics/lio/internal/manifold"
	"github.com/ridgeline-robotics/lio/internal/replay"
)

// identityTF resolves every extrinsic lookup to the identity transform, a
// reasonable stand-in when the recording's own calibration isn't known.
type identityTF struct{}

func (identityTF) LookupTF(from, to string) (manifold.SE3, bool) { return manifold.Identity(), true }

// logPublisher prints each published pose; it ignores the map snapshot and
// path history, which a real deployment would forward to storage or a
// visualiser instead.
type logPublisher struct{}

func (logPublisher) PublishPose(t float64, tOdomLidar manifold.SE3) {
	log.Printf("t=%.6f pos=(%.3f, %.3f, %.3f)", t, tOdomLidar.Trans.X, tOdomLidar.Trans.Y, tOdomLidar.Trans.Z)
}
func (logPublisher) PublishPano(t float64, width, height int, rangeImageFixedPoint []byte) {}
func (logPublisher) PublishPath(poses []manifold.SE3)                                      {}

func main() {
	input := flag.String("input", "", "path to a replay recording (required)")
	lidarFrame := flag.String("lidar-frame", "lidar", "lidar frame name")
	imuFrame := flag.String("imu-frame", "imu", "IMU frame name")
	workers := flag.Int("workers", 0, "fork-join pool size (0 = runtime.NumCPU())")
	grainSize := flag.Int("grain-size", 4, "fork-join chunk size (0 = sequential)")
	flag.Parse()

	if *input == "" {
		log.Fatal("Error: -input flag is required")
	}

	cfg := *l8orch.DefaultConfig()
	cfg.TF = identityTF{}
	cfg.Publisher = logPublisher{}
	cfg.LidarFrame = *lidarFrame
	cfg.IMUFrame = *imuFrame
	cfg.Workers = *workers
	cfg.GrainSize = *grainSize

	orch, err := l8orch.NewOrchestrator(cfg)
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}
	defer orch.Close()

	rd, err := replay.Open(*input)
	if err != nil {
		log.Fatalf("Failed to open recording: %v", err)
	}
	defer rd.Close()

	var scans, imuSamples int
	for {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Replay error: %v", err)
		}

		switch {
		case ev.IMU != nil:
			orch.PushIMU(*ev.IMU)
			imuSamples++
		case ev.Scan != nil:
			orch.PushScan(ev.Scan)
			scans++
		}
	}

	m := orch.Metrics()
	log.Printf("Replay complete: %d IMU samples, %d scans (%d processed, %d dropped)",
		imuSamples, scans, m.ScansProcessed(), m.ScansDropped())
}
