package capture

import (
	"context"
	"testing"
	"time"
)

func TestMemorySamplerWritesRowsUntilCanceled(t *testing.T) {
	store, recID := newTestStore(t)
	sampler, err := NewMemorySampler(store, recID, NewClock())
	if err != nil {
		t.Fatalf("new memory sampler: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2200*time.Millisecond)
	defer cancel()
	sampler.Run(ctx)

	mem, err := store.MemoryStats(recID)
	if err != nil {
		t.Fatalf("memory stats: %v", err)
	}
	if len(mem) < 1 {
		t.Fatalf("expected at least one sample over 2.2s at 1Hz, got %d", len(mem))
	}
}

func TestPerfTimerRecordsElapsedPhase(t *testing.T) {
	store, recID := newTestStore(t)

	timer := StartPerfTimer(store, recID, "frame.encode", "w1")
	time.Sleep(5 * time.Millisecond)
	timer.Stop()

	perf, err := store.PerformanceStats(recID)
	if err != nil {
		t.Fatalf("performance stats: %v", err)
	}
	if len(perf) != 1 {
		t.Fatalf("expected 1 performance_stat row, got %d", len(perf))
	}
	if perf[0].EventType != "frame.encode" || perf[0].WindowID != "w1" {
		t.Fatalf("unexpected row: %+v", perf[0])
	}
	if perf[0].EndTimeNanos <= perf[0].StartTimeNanos {
		t.Fatalf("expected end time after start time, got start=%d end=%d", perf[0].StartTimeNanos, perf[0].EndTimeNanos)
	}
}
