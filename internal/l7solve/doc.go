// Package l7solve owns Layer 7 (GicpSolver), the small-dimensional
// Gauss-Newton solver that turns a batch of grid/pano correspondences into
// a pose increment.
//
// Dependency rule: l7solve depends on manifold, forkjoin, l3grid (for
// ColPose), and l5match (for Correspondence). Only l8orch depends on it.
package l7solve
