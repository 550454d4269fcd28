// Package metrics holds the orchestrator's injected counters: plain
// atomically-updated int64 fields, read without locking by any number of
// reporting goroutines. The orchestrator's scan-processing goroutine
// writes most of them; the IMU-gap counter is written by whichever
// goroutine calls PushIMU.
//
// Grounded on the teacher's internal/lidar/l3grid/background.go, which
// tracks frameProcessCount with atomic.AddInt64 rather than a dedicated
// metrics library or mutex.
package metrics
