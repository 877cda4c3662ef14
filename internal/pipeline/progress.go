package pipeline

import (
	"runtime"
	"time"
)

// tracker accumulates the running totals Progress snapshots are derived
// from: a trailing completion rate and a memory sample, mirroring the
// teacher's internal/async.IndexProgress but as a plain struct emitted
// over a channel instead of a polled, mutex-guarded object (a Coordinator
// run is single-threaded at the batch level once Select has returned,
// so no internal locking is needed here).
type tracker struct {
	total     int
	completed int
	errors    int
	startedAt time.Time
}

func newTracker(total int) *tracker {
	return &tracker{total: total, startedAt: time.Now()}
}

func (t *tracker) snapshot(phase Phase, currentFile string) Progress {
	elapsed := time.Since(t.startedAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.completed) / elapsed
	}

	var eta time.Duration
	if rate > 0 && t.completed < t.total {
		remaining := float64(t.total - t.completed)
		eta = time.Duration(remaining/rate) * time.Second
	}

	return Progress{
		Completed:              t.completed,
		Total:                  t.total,
		CurrentFile:            currentFile,
		Rate:                   rate,
		EstimatedTimeRemaining: eta,
		MemoryUsageMB:          currentMemoryMB(),
		Phase:                  phase,
		ErrorCount:             t.errors,
	}
}

func currentMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / (1024 * 1024)
}

// emit sends p on ch without blocking the pipeline if the receiver isn't
// keeping up; a slow or absent consumer must never stall indexing.
func emit(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}
