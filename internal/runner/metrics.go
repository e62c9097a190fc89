package runner

import (
	"sync/atomic"
	"time"
)

// Metrics counts run outcomes. All increments are atomic; workers update
// them concurrently.
type Metrics struct {
	totalCandidates int64
	processed       int64
	failed          int64
	actedOn         int64
	skipped         int64
	alreadyDesired  int64
	start           time.Time
}

// NewMetrics starts the run clock.
func NewMetrics() *Metrics {
	return &Metrics{start: time.Now()}
}

func (m *Metrics) SetTotalCandidates(n int) { atomic.StoreInt64(&m.totalCandidates, int64(n)) }
func (m *Metrics) IncProcessed()            { atomic.AddInt64(&m.processed, 1) }
func (m *Metrics) IncFailed()               { atomic.AddInt64(&m.failed, 1) }
func (m *Metrics) IncActedOn()              { atomic.AddInt64(&m.actedOn, 1) }
func (m *Metrics) IncSkipped()              { atomic.AddInt64(&m.skipped, 1) }
func (m *Metrics) IncAlreadyDesired()       { atomic.AddInt64(&m.alreadyDesired, 1) }

// Snapshot is a point-in-time copy of the counters for reporting.
type Snapshot struct {
	TotalCandidates int64
	Processed       int64
	Failed          int64
	ActedOn         int64
	Skipped         int64
	AlreadyDesired  int64
	Elapsed         time.Duration
}

// Snapshot reads the counters atomically.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalCandidates: atomic.LoadInt64(&m.totalCandidates),
		Processed:       atomic.LoadInt64(&m.processed),
		Failed:          atomic.LoadInt64(&m.failed),
		ActedOn:         atomic.LoadInt64(&m.actedOn),
		Skipped:         atomic.LoadInt64(&m.skipped),
		AlreadyDesired:  atomic.LoadInt64(&m.alreadyDesired),
		Elapsed:         time.Since(m.start),
	}
}
