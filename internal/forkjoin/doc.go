// Package forkjoin owns the grain_size-parameterized fork-join helper
// shared by every stage named in the concurrency model: Sweep.Interp,
// Grid.Score/Filter/Match, Pano.Add/Render, and the solver's per-cell
// Jacobian assembly.
//
// A single Pool is allocated once, at orchestrator init, and reused every
// scan (the arena pattern): no worker-pool allocation happens on the hot
// path. grain_size == 0 bypasses the pool entirely and runs the loop
// inline on the calling goroutine.
//
// Dependency rule: forkjoin depends on nothing else in this module.
package forkjoin
