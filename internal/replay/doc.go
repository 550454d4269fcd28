// Package replay reads the lio-replay tool's recording format: an
// interleaved stream of IMU samples and lidar scans, decoded into the
// l6imu/l2sweep types the Orchestrator consumes directly.
//
// Grounded on the teacher's internal/lidar/visualiser/recorder package,
// which plays a similar role (decode a recorded .vrlog into frame
// events) for cmd/tools/replay-server; this package is a from-scratch,
// much smaller format since the .vrlog framing is tied to the
// visualiser's own protobuf frame type.
package replay
