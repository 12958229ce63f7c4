package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetRecording(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertRecording(&Recording{
		Timestamp:       100.5,
		MonitorWidth:    1920,
		MonitorHeight:   1080,
		Platform:        "linux",
		TaskDescription: "fill out a form",
		Config:          map[string]any{"record_audio": true},
	})
	if err != nil {
		t.Fatalf("insert recording: %v", err)
	}

	rec, err := s.GetRecording(id)
	if err != nil {
		t.Fatalf("get recording: %v", err)
	}
	if rec.MonitorWidth != 1920 || rec.Platform != "linux" || rec.TaskDescription != "fill out a form" {
		t.Fatalf("unexpected recording: %+v", rec)
	}
	if rec.Config["record_audio"] != true {
		t.Fatalf("expected config round-tripped through JSON, got %+v", rec.Config)
	}
}

func TestSetVideoStartTime(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	if err := s.SetVideoStartTime(id, 12.5); err != nil {
		t.Fatalf("set video start time: %v", err)
	}
	rec, err := s.GetRecording(id)
	if err != nil {
		t.Fatalf("get recording: %v", err)
	}
	if rec.VideoStartTime != 12.5 {
		t.Fatalf("expected video_start_time 12.5, got %v", rec.VideoStartTime)
	}
}

func TestActionEventRoundTripsMouseFields(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	_, err := s.InsertActionEvent(&ActionEventRow{
		RecordingID:     id,
		Name:            "mouse.move",
		Timestamp:       1.0,
		HasMouse:        true,
		MouseX:          5, MouseY: 6,
	})
	if err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	rows, err := s.ActionEvents(id)
	if err != nil {
		t.Fatalf("list action events: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].HasMouse || rows[0].MouseX != 5 || rows[0].MouseY != 6 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestActionEventWithoutMouseHasMouseFalse(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	_, err := s.InsertActionEvent(&ActionEventRow{
		RecordingID: id,
		Name:        "key.down",
		Timestamp:   1.0,
		KeyName:     "a",
	})
	if err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	rows, err := s.ActionEvents(id)
	if err != nil {
		t.Fatalf("list action events: %v", err)
	}
	if rows[0].HasMouse {
		t.Fatal("expected HasMouse false for a keyboard event")
	}
	if rows[0].KeyName != "a" {
		t.Fatalf("expected key name %q, got %q", "a", rows[0].KeyName)
	}
}

func TestLastActionEventTimestamp(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	for _, ts := range []float64{1, 5, 3} {
		if _, err := s.InsertActionEvent(&ActionEventRow{RecordingID: id, Name: "mouse.move", Timestamp: ts}); err != nil {
			t.Fatalf("insert action event: %v", err)
		}
	}

	last, err := s.LastActionEventTimestamp(id)
	if err != nil {
		t.Fatalf("last action event timestamp: %v", err)
	}
	if last != 5 {
		t.Fatalf("expected max timestamp 5, got %v", last)
	}
}

func TestWindowEventsOrderedByTimestamp(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	for _, w := range []WindowEventRow{
		{RecordingID: id, Timestamp: 2, Title: "B"},
		{RecordingID: id, Timestamp: 1, Title: "A"},
	} {
		if _, err := s.InsertWindowEvent(&w); err != nil {
			t.Fatalf("insert window event: %v", err)
		}
	}

	rows, err := s.WindowEvents(id)
	if err != nil {
		t.Fatalf("list window events: %v", err)
	}
	if len(rows) != 2 || rows[0].Title != "A" || rows[1].Title != "B" {
		t.Fatalf("expected window events ordered by timestamp, got %+v", rows)
	}
}

func TestPerformanceAndMemoryStats(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	if err := s.InsertPerformanceStat(&PerformanceStatRow{
		RecordingID: id, EventType: "mouse.move", StartTimeNanos: 100, EndTimeNanos: 150,
	}); err != nil {
		t.Fatalf("insert performance stat: %v", err)
	}
	if err := s.InsertMemoryStat(&MemoryStatRow{RecordingID: id, MemoryUsageBytes: 1024, Timestamp: 1}); err != nil {
		t.Fatalf("insert memory stat: %v", err)
	}

	perf, err := s.PerformanceStats(id)
	if err != nil {
		t.Fatalf("performance stats: %v", err)
	}
	if len(perf) != 1 || perf[0].EventType != "mouse.move" || perf[0].EndTimeNanos != 150 {
		t.Fatalf("unexpected performance stats: %+v", perf)
	}

	mem, err := s.MemoryStats(id)
	if err != nil {
		t.Fatalf("memory stats: %v", err)
	}
	if len(mem) != 1 || mem[0].MemoryUsageBytes != 1024 {
		t.Fatalf("unexpected memory stats: %+v", mem)
	}
}

func TestCreateFailsAgainstAlreadyExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.db")

	first, err := Create(path)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := first.InsertRecording(&Recording{Timestamp: 0}); err != nil {
		t.Fatalf("insert recording: %v", err)
	}
	first.Close()

	if _, err := Create(path); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for a second Create at the same path, got %v", err)
	}
}

func TestOpenFailsWithoutARecordingRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.db")

	// Create, then immediately close without ever inserting a recording row,
	// so the schema exists but the table is empty.
	s, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Close()

	if _, err := Open(path); !errors.Is(err, ErrMissingRecording) {
		t.Fatalf("expected ErrMissingRecording, got %v", err)
	}
}

func TestOpenSucceedsOnceARecordingExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recording.db")

	s, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.InsertRecording(&Recording{Timestamp: 0}); err != nil {
		t.Fatalf("insert recording: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	reopened.Close()
}

func TestCreateSucceedsAtAFreshNonExistentPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir-missing-is-fine", "recording.db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	s, err := Create(path)
	if err != nil {
		t.Fatalf("create at fresh path: %v", err)
	}
	s.Close()
}

func TestInsertScreenshotWithAndWithoutDiff(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	if _, err := s.InsertScreenshot(&ScreenshotRow{RecordingID: id, Timestamp: 1, PNGData: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("insert screenshot without diff: %v", err)
	}
	if _, err := s.InsertScreenshot(&ScreenshotRow{
		RecordingID: id, Timestamp: 2, PNGData: []byte{1, 2, 3},
		PNGDiffData: []byte{4, 5}, PNGDiffMaskData: []byte{6, 7},
	}); err != nil {
		t.Fatalf("insert screenshot with diff: %v", err)
	}
}
