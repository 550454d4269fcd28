// Package manifold owns Layer 0 (Manifold) of the odometry data model.
//
// Responsibilities: the rigid-pose type (unit quaternion + translation),
// its tangent-space twist, and the exponential/logarithm pair and
// left-trivialized derivative used by the GICP solver's Jacobian.
//
// Dependency rule: manifold depends on nothing else in this module. Every
// other layer (l1model..l8orch) may depend on it.
package manifold
