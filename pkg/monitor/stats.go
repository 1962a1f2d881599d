package monitor

import (
	"sync/atomic"
)

// WorkloadStats counts statements by kind. Counters are atomic so the HTTP
// server can read them while a statement runs.
type WorkloadStats struct {
	ReadCount  uint64
	WriteCount uint64
	ErrorCount uint64
}

func NewWorkloadStats() *WorkloadStats {
	return &WorkloadStats{}
}

func (ws *WorkloadStats) RecordRead() {
	atomic.AddUint64(&ws.ReadCount, 1)
}

func (ws *WorkloadStats) RecordWrite() {
	atomic.AddUint64(&ws.WriteCount, 1)
}

func (ws *WorkloadStats) RecordError() {
	atomic.AddUint64(&ws.ErrorCount, 1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Reads  uint64  `json:"reads"`
	Writes uint64  `json:"writes"`
	Errors uint64  `json:"errors"`
	Ratio  float64 `json:"rw_ratio"`
}

func (ws *WorkloadStats) Snapshot() Snapshot {
	return Snapshot{
		Reads:  atomic.LoadUint64(&ws.ReadCount),
		Writes: atomic.LoadUint64(&ws.WriteCount),
		Errors: atomic.LoadUint64(&ws.ErrorCount),
		Ratio:  ws.GetReadWriteRatio(),
	}
}

func (ws *WorkloadStats) GetReadWriteRatio() float64 {
	reads := atomic.LoadUint64(&ws.ReadCount)
	writes := atomic.LoadUint64(&ws.WriteCount)

	if writes == 0 {
		if reads > 0 {
			return 100.0
		}
		return 0.0
	}
	return float64(reads) / float64(writes)
}
