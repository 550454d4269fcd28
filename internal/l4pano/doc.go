// Package l4pano owns Layer 4 (DepthPano) of the odometry pipeline.
//
// Responsibilities: the rolling fixed-point range-image panorama that
// acts as the implicit local map, its incremental depth-occlusion-aware
// fusion of new sweep points, and the render (reframe) operation that
// re-expresses the panorama in a new local frame.
//
// Dependency rule: l4pano depends on manifold, meanvar, forkjoin,
// l1model, and l2sweep. Layers l5match through l8orch may depend on it;
// it never depends on l3grid, l5match, l6imu, or l7solve.
package l4pano
