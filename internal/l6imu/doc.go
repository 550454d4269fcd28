// Package l6imu owns Layer 6 (ImuQueue & Trajectory) of the odometry
// pipeline.
//
// Responsibilities: a fixed-capacity ring buffer of inertial samples, and
// the pose-knot trajectory integrated forward from it — used both to
// predict per-column registration initial guesses and, after the solver
// converges, to undistort sweep columns.
//
// Dependency rule: l6imu depends on manifold and forkjoin. Layers l7solve
// and l8orch may depend on it; it never depends on l1model, l2sweep,
// l3grid, l4pano, or l5match — the orchestrator is the only place knot
// poses and sweep/grid poses meet.
package l6imu
