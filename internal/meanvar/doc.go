// Package meanvar owns the mean-covariance accumulator shared by Layer 3
// (SweepGrid), Layer 4 (DepthPano), and Layer 5 (ProjMatcher).
//
// Responsibilities: a numerically stable, permutation-order-independent
// running count/mean/3x3-co-moment accumulator, plus the scalar curvature
// score used to cheaply filter grid cells.
//
// Dependency rule: meanvar depends on nothing else in this module. Layers
// l3grid, l4pano, and l5match embed it.
package meanvar
