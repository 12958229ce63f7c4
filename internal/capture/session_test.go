package capture

import (
	"path/filepath"
	"testing"

	"github.com/actiontrace/capture/internal/storage"
)

func newTestSession(t *testing.T) (*CaptureSession, int64) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.Create(filepath.Join(dir, "recording.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}

	recID, err := store.InsertRecording(&storage.Recording{Timestamp: 1000.0, Platform: "test"})
	if err != nil {
		t.Fatalf("insert recording: %v", err)
	}
	store.Close()

	sess, err := Load(dir, recID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess, recID
}

func TestSessionRawEventsRoundTrips(t *testing.T) {
	sess, recID := newTestSession(t)

	store, err := storage.OpenExisting(filepath.Join(sess.dir, "recording.db"))
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	if _, err := store.InsertActionEvent(&storage.ActionEventRow{
		RecordingID: recID, Name: "mouse.move", Timestamp: 1.0, HasMouse: true, MouseX: 3, MouseY: 4,
	}); err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	events, err := sess.RawEvents()
	if err != nil {
		t.Fatalf("raw events: %v", err)
	}
	if len(events) != 1 || events[0].Kind() != KindMouseMove {
		t.Fatalf("unexpected raw events: %+v", events)
	}
	if events[0].MouseX != 3 || events[0].MouseY != 4 {
		t.Fatalf("unexpected mouse coords: %+v", events[0])
	}
}

func TestSessionActionsMergesRawEvents(t *testing.T) {
	sess, recID := newTestSession(t)

	store, err := storage.OpenExisting(filepath.Join(sess.dir, "recording.db"))
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	for _, row := range []storage.ActionEventRow{
		{RecordingID: recID, Name: "mouse.down", Timestamp: 1.0, HasMouse: true, MouseX: 1, MouseY: 1, MouseButtonName: "left"},
		{RecordingID: recID, Name: "mouse.up", Timestamp: 1.01, HasMouse: true, MouseX: 1, MouseY: 1, MouseButtonName: "left"},
	} {
		if _, err := store.InsertActionEvent(&row); err != nil {
			t.Fatalf("insert action event: %v", err)
		}
	}

	actions, err := sess.Actions(0.3, 4)
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if len(actions) != 1 || actions[0].Kind() != KindMouseSingleClick {
		t.Fatalf("expected merged single click, got %+v", actions)
	}
}

func TestSessionDurationAndEndedAt(t *testing.T) {
	sess, recID := newTestSession(t)

	store, err := storage.OpenExisting(filepath.Join(sess.dir, "recording.db"))
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()

	if _, err := store.InsertActionEvent(&storage.ActionEventRow{RecordingID: recID, Name: "mouse.move", Timestamp: 42.0}); err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	dur, err := sess.Duration()
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if dur != 42.0 {
		t.Fatalf("expected duration 42.0, got %v", dur)
	}

	ended, err := sess.EndedAt()
	if err != nil {
		t.Fatalf("ended at: %v", err)
	}
	if ended != 1000.0+42.0 {
		t.Fatalf("expected ended at 1042.0, got %v", ended)
	}
}

func TestSessionPathHelpers(t *testing.T) {
	sess, _ := newTestSession(t)

	if filepath.Base(sess.VideoPath()) != "video.mp4" {
		t.Fatalf("unexpected video path: %s", sess.VideoPath())
	}
	if filepath.Base(sess.AudioPath()) != "audio.flac" {
		t.Fatalf("unexpected audio path: %s", sess.AudioPath())
	}
	if filepath.Base(sess.ProfilingPath()) != "profiling.json" {
		t.Fatalf("unexpected profiling path: %s", sess.ProfilingPath())
	}
}
