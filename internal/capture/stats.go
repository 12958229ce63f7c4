package capture

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/actiontrace/capture/internal/storage"
)

// MemorySampler samples this process's RSS once a second and writes a
// memory_stat row per sample, when RecordingConfig.LogMemory is enabled.
type MemorySampler struct {
	store       *storage.Store
	recordingID int64
	clock       Clock
	proc        *process.Process
}

// NewMemorySampler binds to the current process.
func NewMemorySampler(store *storage.Store, recordingID int64, clock Clock) (*MemorySampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &MemorySampler{store: store, recordingID: recordingID, clock: clock, proc: proc}, nil
}

// Run samples at 1Hz until ctx is canceled.
func (m *MemorySampler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := m.proc.MemoryInfo()
			if err != nil {
				continue
			}
			m.store.InsertMemoryStat(&storage.MemoryStatRow{
				RecordingID:      m.recordingID,
				MemoryUsageBytes: float64(info.RSS),
				Timestamp:        m.clock.NowSeconds(),
			})
		}
	}
}

// PerfTimer records the start/end of a named phase as a performance_stat
// row, e.g. the time spent encoding a single frame or draining a writer
// queue at shutdown.
type PerfTimer struct {
	store       *storage.Store
	recordingID int64
	eventType   string
	windowID    string
	start       time.Time
}

// StartPerfTimer begins timing eventType. Call Stop when the phase ends.
func StartPerfTimer(store *storage.Store, recordingID int64, eventType, windowID string) *PerfTimer {
	return &PerfTimer{store: store, recordingID: recordingID, eventType: eventType, windowID: windowID, start: time.Now()}
}

// Stop records the elapsed phase as a performance_stat row.
func (p *PerfTimer) Stop() {
	end := time.Now()
	p.store.InsertPerformanceStat(&storage.PerformanceStatRow{
		RecordingID:    p.recordingID,
		EventType:      p.eventType,
		StartTimeNanos: p.start.UnixNano(),
		EndTimeNanos:   end.UnixNano(),
		WindowID:       p.windowID,
	})
}
