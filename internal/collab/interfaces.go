package collab

import "github.com/ridgeline-robotics/lio/internal/manifold"

// TFLookup resolves a named extrinsic frame transform, e.g. the fixed
// lidar-to-IMU extrinsic supplied by the platform's calibration system.
// Missing is reported by the bool return rather than an error, since a
// missing transform is an ordinary, expected condition at boot (spec §7:
// "Uninitialized ... transform-lookup-missing — logged as warnings; scan
// is dropped; state retained").
type TFLookup interface {
	LookupTF(fromFrame, toFrame string) (tf manifold.SE3, ok bool)
}

// Publisher receives the orchestrator's per-scan outputs. PublishPano is
// optional — implementations that don't care about the map may no-op it.
type Publisher interface {
	// PublishPose sends the sensor's odom-frame pose at timestamp.
	PublishPose(timestamp float64, tOdomLidar manifold.SE3)
	// PublishPano sends the little-endian fixed-point range image: one
	// (u16 range units of 1/512 m, u16 count) pair per pixel, row-major.
	PublishPano(timestamp float64, width, height int, rangeImageFixedPoint []byte)
	// PublishPath sends the full accumulated odom-frame pose sequence.
	PublishPath(poses []manifold.SE3)
}
