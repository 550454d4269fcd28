// Package l2sweep owns Layer 2 (LidarScan / LidarSweep) of the odometry
// pipeline.
//
// Responsibilities: the image-shaped point container that accumulates one
// full revolution's worth of range-precomputed points (the sweep), the
// contiguous column-slice message that feeds it (the scan), and the
// per-column pose interpolation that fills in motion-compensated poses
// after the solver converges.
//
// Dependency rule: l2sweep depends on manifold, forkjoin, and l1model.
// Layers l3grid through l8orch may depend on it.
package l2sweep
