package storage

import "testing"

func TestPostProcessLinksNearestScreenshotAtOrBeforeTimestamp(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	shotID, err := s.InsertScreenshot(&ScreenshotRow{RecordingID: id, Timestamp: 1.0, PNGData: []byte{1}})
	if err != nil {
		t.Fatalf("insert screenshot: %v", err)
	}
	laterShotID, err := s.InsertScreenshot(&ScreenshotRow{RecordingID: id, Timestamp: 2.0, PNGData: []byte{2}})
	if err != nil {
		t.Fatalf("insert screenshot: %v", err)
	}

	actionID, err := s.InsertActionEvent(&ActionEventRow{
		RecordingID: id, Name: "mouse.move", Timestamp: 1.5,
		HasScreenshotTS: true, ScreenshotTimestamp: 1.5,
	})
	if err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	if err := s.PostProcess(id); err != nil {
		t.Fatalf("postprocess: %v", err)
	}

	var linked int64
	if err := s.db.QueryRow(`SELECT screenshot_id FROM action_event WHERE id = ?`, actionID).Scan(&linked); err != nil {
		t.Fatalf("query linked screenshot: %v", err)
	}
	if linked != shotID {
		t.Fatalf("expected action linked to screenshot at ts 1.0 (the nearest not exceeding 1.5), got id %d want %d (later shot id %d)", linked, shotID, laterShotID)
	}
}

func TestPostProcessLeavesUnmatchedActionsUnlinked(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	actionID, err := s.InsertActionEvent(&ActionEventRow{
		RecordingID: id, Name: "mouse.move", Timestamp: 0.5,
		HasScreenshotTS: true, ScreenshotTimestamp: 0.5,
	})
	if err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	// No screenshot rows exist at all, so nothing can link.
	if err := s.PostProcess(id); err != nil {
		t.Fatalf("postprocess: %v", err)
	}

	var linked any
	if err := s.db.QueryRow(`SELECT screenshot_id FROM action_event WHERE id = ?`, actionID).Scan(&linked); err != nil {
		t.Fatalf("query linked screenshot: %v", err)
	}
	if linked != nil {
		t.Fatalf("expected screenshot_id to remain NULL, got %v", linked)
	}
}

func TestPostProcessIgnoresActionsWithoutDecoratedTimestamp(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertRecording(&Recording{Timestamp: 0})

	if _, err := s.InsertScreenshot(&ScreenshotRow{RecordingID: id, Timestamp: 1.0, PNGData: []byte{1}}); err != nil {
		t.Fatalf("insert screenshot: %v", err)
	}
	actionID, err := s.InsertActionEvent(&ActionEventRow{RecordingID: id, Name: "mouse.move", Timestamp: 1.0})
	if err != nil {
		t.Fatalf("insert action event: %v", err)
	}

	if err := s.PostProcess(id); err != nil {
		t.Fatalf("postprocess: %v", err)
	}

	var linked any
	if err := s.db.QueryRow(`SELECT screenshot_id FROM action_event WHERE id = ?`, actionID).Scan(&linked); err != nil {
		t.Fatalf("query linked screenshot: %v", err)
	}
	if linked != nil {
		t.Fatalf("expected action never decorated with a screenshot timestamp to stay unlinked, got %v", linked)
	}
}
