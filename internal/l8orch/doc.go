// Package l8orch owns Layer 8, the Orchestrator: the single-threaded
// per-scan cycle that owns every lower layer's mutable state and drives
// them through the nine-step registration loop (spec §4.8). It is the
// only package that imports every layer below it.
package l8orch
