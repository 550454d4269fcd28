// Package l3grid owns Layer 3 (SweepGrid) of the odometry pipeline.
//
// Responsibilities: the coarsened feature grid over a sweep, summarizing
// small column*row windows with a curvature/variance score and a 3D
// mean-covariance Gaussian, used to select candidate cells for matching.
//
// Dependency rule: l3grid depends on manifold, meanvar, forkjoin, and
// l2sweep. Layers l5match through l8orch may depend on it; it never
// depends on l4pano, l5match, l6imu, or l7solve.
package l3grid
