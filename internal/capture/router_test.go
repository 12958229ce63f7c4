package capture

import (
	"image"
	"testing"
	"time"

	"github.com/actiontrace/capture/internal/logging"
)

type fakeEncoderSink struct {
	submitted []*ScreenEvent
}

func (f *fakeEncoderSink) Submit(evt *ScreenEvent) {
	f.submitted = append(f.submitted, evt)
}

func runRouter(t *testing.T, inbox *Inbox, writers *WriterSet, encoder EncoderSink, recordVideo, fullVideo, recordWindowData bool) {
	t.Helper()
	r := NewRouter(inbox, writers, encoder, recordVideo, fullVideo, recordWindowData, logging.L("test"))
	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("router did not finish after inbox closed")
	}
}

func TestRouterActionGatedVideoSubmitsOnlyAfterAction(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	frame := NewScreenEvent(1, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	inbox.Push(frame)
	inbox.Push(NewActionEvent(KindMouseMove, 1.1))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, false, false)
	writers.Close(2 * time.Second)

	if len(encoder.submitted) != 1 {
		t.Fatalf("expected exactly 1 frame submitted to the encoder (gated by the action), got %d", len(encoder.submitted))
	}
	if encoder.submitted[0] != frame {
		t.Fatal("expected the prior screen frame to be submitted on action")
	}
}

// TestRouterActionGatedVideoDedupsRepeatedActionsAgainstSameFrame covers the
// case a single "promote once per new frame" bug previously missed: two
// actions that both reference the same unpromoted screen frame must result
// in exactly one encoder submission and one screenshot row, not two.
func TestRouterActionGatedVideoDedupsRepeatedActionsAgainstSameFrame(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	frame := NewScreenEvent(1, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	inbox.Push(frame)
	inbox.Push(NewActionEvent(KindMouseMove, 1.1))
	inbox.Push(NewActionEvent(KindMouseMove, 1.2))
	inbox.Push(NewActionEvent(KindMouseMove, 1.3))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, false, false)
	writers.Close(2 * time.Second)

	if len(encoder.submitted) != 1 {
		t.Fatalf("expected exactly 1 frame submitted for 3 actions sharing one frame, got %d", len(encoder.submitted))
	}

	rows, err := store.Screenshots(recID)
	if err != nil {
		t.Fatalf("query screenshots: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 screenshot row promoted, got %d", len(rows))
	}
}

func TestRouterFullVideoSubmitsEveryFrameRegardlessOfActions(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	inbox.Push(NewScreenEvent(1, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	inbox.Push(NewScreenEvent(2, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, true, false)
	writers.Close(2 * time.Second)

	if len(encoder.submitted) != 2 {
		t.Fatalf("expected every frame submitted in full-video mode, got %d", len(encoder.submitted))
	}
}

// TestRouterPromotesWindowOnlyOnceOnActionReference covers the action-gated
// window persistence policy: window rows are never written on arrival, only
// once an action references a distinct, not-yet-saved window state.
func TestRouterPromotesWindowOnlyOnceOnActionReference(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	inbox.Push(NewScreenEvent(0.5, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	inbox.Push(NewWindowEvent(1, "Editor", "w1", 0, 0, 800, 600))
	inbox.Push(NewWindowEvent(2, "Editor", "w1", 0, 0, 800, 600)) // identical, dropped before promotion
	inbox.Push(NewWindowEvent(3, "Editor", "w1", 0, 0, 801, 600)) // differs, becomes prevWindow

	// No action yet: nothing should be persisted.
	inbox.Push(NewActionEvent(KindMouseMove, 4))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, false, true)
	writers.Close(2 * time.Second)

	rows, err := store.WindowEvents(recID)
	if err != nil {
		t.Fatalf("query window events: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 window row promoted by the action, got %d", len(rows))
	}
	if rows[0].Timestamp != 3 {
		t.Fatalf("expected the most recent distinct window state (ts=3) promoted, got ts=%v", rows[0].Timestamp)
	}
}

// TestRouterDoesNotPersistWindowWithoutAnAction covers the other half of the
// same policy: window state that arrives but is never referenced by an
// action must never reach the database.
func TestRouterDoesNotPersistWindowWithoutAnAction(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	inbox.Push(NewWindowEvent(1, "Editor", "w1", 0, 0, 800, 600))
	inbox.Push(NewWindowEvent(2, "Editor", "w1", 0, 0, 801, 600))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, false, true)
	writers.Close(2 * time.Second)

	rows, err := store.WindowEvents(recID)
	if err != nil {
		t.Fatalf("query window events: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no window rows without an action referencing them, got %d", len(rows))
	}
}

// TestRouterDiscardsActionBeforeFirstScreen covers the required discard
// behavior: an action with no prior screen frame has nothing to decorate it
// with and must never reach a writer.
func TestRouterDiscardsActionBeforeFirstScreen(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	inbox.Push(NewActionEvent(KindMouseMove, 1))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, false, false)
	writers.Close(2 * time.Second)

	rows, err := store.ActionEvents(recID)
	if err != nil {
		t.Fatalf("query action events: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected the action to be discarded, got %d rows", len(rows))
	}
}

// TestRouterDiscardsActionBeforeFirstWindowWhenWindowDataEnabled mirrors the
// screen-side discard requirement, but only when window capture was
// requested at all.
func TestRouterDiscardsActionBeforeFirstWindowWhenWindowDataEnabled(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	inbox.Push(NewScreenEvent(0.5, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	inbox.Push(NewActionEvent(KindMouseMove, 1))
	inbox.Close()

	runRouter(t, inbox, writers, encoder, true, false, true)
	writers.Close(2 * time.Second)

	rows, err := store.ActionEvents(recID)
	if err != nil {
		t.Fatalf("query action events: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected the action to be discarded pending window data, got %d rows", len(rows))
	}
}

func TestRouterDecorateAttachesMostRecentScreenAndWindowTimestamps(t *testing.T) {
	store, recID := newTestStore(t)
	writers := NewWriterSet(store, recID, 8, true, logging.L("test"))
	encoder := &fakeEncoderSink{}
	inbox := NewInbox()

	inbox.Push(NewScreenEvent(1, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	inbox.Push(NewWindowEvent(1.5, "Editor", "w1", 0, 0, 800, 600))
	action := NewActionEvent(KindMouseMove, 2)
	inbox.Push(action)
	inbox.Close()

	r := NewRouter(inbox, writers, encoder, true, false, true, logging.L("test"))
	for {
		evt, ok := inbox.Pop()
		if !ok {
			break
		}
		r.route(evt)
	}

	if !action.HasScreenshotTimestamp || action.ScreenshotTimestamp != 1 {
		t.Fatalf("expected action decorated with screenshot ts 1, got has=%v ts=%v", action.HasScreenshotTimestamp, action.ScreenshotTimestamp)
	}
	if !action.HasWindowEventTimestamp || action.WindowEventTimestamp != 1.5 {
		t.Fatalf("expected action decorated with window ts 1.5, got has=%v ts=%v", action.HasWindowEventTimestamp, action.WindowEventTimestamp)
	}
}
