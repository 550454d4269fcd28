package metrics

import "sync/atomic"

// Metrics is the orchestrator's counter set, per spec §7's fault taxonomy.
// Zero value is ready to use.
type Metrics struct {
	scansProcessed          int64
	scansDropped            int64
	imuSequenceGaps         int64
	scanSequenceGaps        int64
	correspondencesDropped  int64
	nonFiniteDropped        int64
	rendersTriggered        int64
	solverNonConverged      int64
}

func (m *Metrics) IncScansProcessed()         { atomic.AddInt64(&m.scansProcessed, 1) }
func (m *Metrics) IncScansDropped()           { atomic.AddInt64(&m.scansDropped, 1) }
func (m *Metrics) IncIMUSequenceGaps()        { atomic.AddInt64(&m.imuSequenceGaps, 1) }
func (m *Metrics) IncScanSequenceGaps()       { atomic.AddInt64(&m.scanSequenceGaps, 1) }
func (m *Metrics) AddCorrespondencesDropped(n int64) {
	atomic.AddInt64(&m.correspondencesDropped, n)
}
func (m *Metrics) IncNonFiniteDropped()  { atomic.AddInt64(&m.nonFiniteDropped, 1) }
func (m *Metrics) IncRendersTriggered()  { atomic.AddInt64(&m.rendersTriggered, 1) }
func (m *Metrics) IncSolverNonConverged() { atomic.AddInt64(&m.solverNonConverged, 1) }

func (m *Metrics) ScansProcessed() int64         { return atomic.LoadInt64(&m.scansProcessed) }
func (m *Metrics) ScansDropped() int64           { return atomic.LoadInt64(&m.scansDropped) }
func (m *Metrics) IMUSequenceGaps() int64        { return atomic.LoadInt64(&m.imuSequenceGaps) }
func (m *Metrics) ScanSequenceGaps() int64       { return atomic.LoadInt64(&m.scanSequenceGaps) }
func (m *Metrics) CorrespondencesDropped() int64 { return atomic.LoadInt64(&m.correspondencesDropped) }
func (m *Metrics) NonFiniteDropped() int64       { return atomic.LoadInt64(&m.nonFiniteDropped) }
func (m *Metrics) RendersTriggered() int64       { return atomic.LoadInt64(&m.rendersTriggered) }
func (m *Metrics) SolverNonConverged() int64     { return atomic.LoadInt64(&m.solverNonConverged) }
