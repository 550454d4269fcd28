// Package l5match owns Layer 5 (ProjMatcher) of the odometry pipeline.
//
// Responsibilities: for each good grid cell, predict a panorama pixel via
// the cell's current pose, gather a local window of panorama depths,
// recompute the pano-side mean-covariance, and form a GICP correspondence
// with a precomputed square-root information matrix.
//
// Dependency rule: l5match depends on manifold, meanvar, forkjoin,
// l1model, l2sweep, l3grid, and l4pano. Layers l6imu through l8orch may
// depend on it; it never depends on them.
package l5match
