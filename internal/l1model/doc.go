// Package l1model owns Layer 1 (LidarModel) of the odometry pipeline.
//
// Responsibilities: the azimuth/elevation projective model mapping 3D
// sensor-frame points to panoramic (row, column) pixels and back. A pure
// function of sensor geometry; holds no per-scan state.
//
// Dependency rule: l1model depends only on manifold-free geometry (stdlib
// math). Layers l2sweep through l8orch may depend on it; it depends on
// nothing above it.
package l1model
