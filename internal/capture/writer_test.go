package capture

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/actiontrace/capture/internal/logging"
	"github.com/actiontrace/capture/internal/storage"
)

func newTestStore(t *testing.T) (*storage.Store, int64) {
	t.Helper()
	store, err := storage.Create(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	id, err := store.InsertRecording(&storage.Recording{Timestamp: 0, Platform: "test"})
	if err != nil {
		t.Fatalf("insert recording: %v", err)
	}
	return store, id
}

func closeWriterSet(ws *WriterSet) {
	ws.Broadcast(Sentinel)
	ws.Close(2 * time.Second)
}

func TestWriterSetWritesActionEvent(t *testing.T) {
	store, recID := newTestStore(t)
	ws := NewWriterSet(store, recID, 8, true, logging.L("test"))

	evt := NewActionEvent(KindMouseMove, 1.5)
	evt.MouseX, evt.MouseY = 10, 20
	ws.Send(KindMouseMove, evt)
	closeWriterSet(ws)

	rows, err := store.ActionEvents(recID)
	if err != nil {
		t.Fatalf("query action events: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 action_event row, got %d", len(rows))
	}
	if rows[0].Name != string(KindMouseMove) || rows[0].MouseX != 10 || rows[0].MouseY != 20 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestWriterSetSkipsUnregisteredKind(t *testing.T) {
	store, recID := newTestStore(t)
	ws := NewWriterSet(store, recID, 8, true, logging.L("test"))

	ws.Send(KindScreenFrame, NewScreenEvent(1, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	closeWriterSet(ws)

	rows, err := store.ActionEvents(recID)
	if err != nil {
		t.Fatalf("query action events: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows for an unregistered kind, got %d", len(rows))
	}
}

// TestWriterSetTracksPrevScreenshotAcrossFrames exercises the screenshot
// pool's single worker goroutine serially writing two frames, confirming
// prevScreenshot advances to the most recently written image so the next
// diff compares against it rather than the frame before.
func TestWriterSetTracksPrevScreenshotAcrossFrames(t *testing.T) {
	store, recID := newTestStore(t)
	ws := NewWriterSet(store, recID, 8, true, logging.L("test"))

	first := image.NewRGBA(image.Rect(0, 0, 4, 4))
	second := image.NewRGBA(image.Rect(0, 0, 4, 4))
	second.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	ws.SendScreenshot(NewScreenEvent(1, first))
	ws.SendScreenshot(NewScreenEvent(2, second))
	closeWriterSet(ws)

	if ws.prevScreenshot != second {
		t.Fatal("expected prevScreenshot to be the most recently written frame")
	}
}

// TestWriterSetScreenshotRowPersistsWithoutImagesWhenDisabled confirms
// RecordImages only withholds pixel data: the screenshot row itself (and
// its timestamp, relied on by the action_event foreign-key invariant) is
// still written when a frame is promoted.
func TestWriterSetScreenshotRowPersistsWithoutImagesWhenDisabled(t *testing.T) {
	store, recID := newTestStore(t)
	ws := NewWriterSet(store, recID, 8, false, logging.L("test"))

	ws.SendScreenshot(NewScreenEvent(1.042, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	closeWriterSet(ws)

	rows, err := store.Screenshots(recID)
	if err != nil {
		t.Fatalf("query screenshots: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 screenshot row even with RecordImages disabled, got %d", len(rows))
	}
	if rows[0].Timestamp != 1.042 {
		t.Fatalf("unexpected screenshot timestamp: %v", rows[0].Timestamp)
	}
	if len(rows[0].PNGData) != 0 {
		t.Fatal("expected no PNG bytes attached when RecordImages is disabled")
	}
}

func TestWriterSetBroadcastStopsAcceptingNewWork(t *testing.T) {
	store, recID := newTestStore(t)
	ws := NewWriterSet(store, recID, 8, true, logging.L("test"))
	ws.Broadcast(Sentinel)

	ws.Send(KindMouseMove, NewActionEvent(KindMouseMove, 1))
	ws.Close(2 * time.Second)

	rows, err := store.ActionEvents(recID)
	if err != nil {
		t.Fatalf("query action events: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected submissions after Broadcast to be dropped, got %d rows", len(rows))
	}
}
