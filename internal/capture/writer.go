package capture

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/actiontrace/capture/internal/storage"
	"github.com/actiontrace/capture/internal/workerpool"
)

// WriterSet owns one single-worker pool per event kind, guaranteeing the
// single-writer-per-table discipline: every row for a given table is
// inserted from the same goroutine, in submission order, even though
// multiple kinds feed from the same router.
type WriterSet struct {
	recordingID  int64
	store        *storage.Store
	logger       *slog.Logger
	recordImages bool

	action    *workerpool.Pool
	window    *workerpool.Pool
	browser   *workerpool.Pool
	screenshot *workerpool.Pool

	pending map[EventKind]*workerpool.Pool

	// prevScreenshot is only ever touched from the screenshot pool's single
	// worker goroutine (maxWorkers=1), so it needs no lock of its own.
	prevScreenshot *image.RGBA
}

// NewWriterSet builds the writer pools. queueSize bounds each kind's queue;
// Send does not block on a full queue: the submission is rejected, and
// Send logs and drops the row. Every pool writes through the one shared
// store. recordImages controls only whether a promoted
// screenshot row carries its PNG bytes (and diff); the row itself is
// always written once the router promotes a frame.
func NewWriterSet(store *storage.Store, recordingID int64, queueSize int, recordImages bool, logger *slog.Logger) *WriterSet {
	ws := &WriterSet{
		recordingID:  recordingID,
		store:        store,
		logger:       logger,
		recordImages: recordImages,
		action:       workerpool.New(1, queueSize),
		window:       workerpool.New(1, queueSize),
		browser:      workerpool.New(1, queueSize),
		screenshot:   workerpool.New(1, queueSize),
	}
	ws.pending = map[EventKind]*workerpool.Pool{
		KindMouseMove: ws.action, KindMouseDown: ws.action, KindMouseUp: ws.action,
		KindMouseScroll: ws.action, KindMouseSingleClick: ws.action, KindMouseDoubleClick: ws.action,
		KindMouseDrag: ws.action, KindKeyDown: ws.action, KindKeyUp: ws.action, KindKeyType: ws.action,
		KindWindow:  ws.window,
		KindBrowser: ws.browser,
	}
	return ws
}

// Send submits evt to the pool owning its kind. A rejected submission
// (pool stopped or queue full) is logged and dropped — by the time a pool
// is stopped the recording is already shutting down, and a full queue
// means the writer has fallen behind by more than queueSize rows, at which
// point dropping is preferable to blocking every other writer's shutdown.
func (ws *WriterSet) Send(kind EventKind, evt Event) {
	pool, ok := ws.pending[kind]
	if !ok {
		ws.logger.Warn("writer: no pool registered for kind", "kind", kind)
		return
	}
	if !pool.Submit(func() { ws.write(kind, evt) }) {
		ws.logger.Warn("writer: dropped event, pool unavailable", "kind", kind)
	}
}

// SendScreenshot submits a screenshot row for a screen frame the router has
// just promoted (an action referenced it and it wasn't already persisted).
// Called regardless of RecordImages; RecordImages only decides whether
// writeScreenshot attaches pixel data to the row.
func (ws *WriterSet) SendScreenshot(e *ScreenEvent) {
	if !ws.screenshot.Submit(func() { ws.writeScreenshot(e) }) {
		ws.logger.Warn("writer: dropped screenshot, pool unavailable")
	}
}

// Broadcast stops every pool from accepting new work (its argument is
// ignored; nothing is enqueued), so Close's Drain calls return promptly
// once in-flight rows finish.
func (ws *WriterSet) Broadcast(_ Event) {
	ws.action.StopAccepting()
	ws.window.StopAccepting()
	ws.browser.StopAccepting()
	ws.screenshot.StopAccepting()
}

// Close drains every pool with the given per-pool timeout.
func (ws *WriterSet) Close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ws.action.Drain(ctx)
	ws.window.Drain(ctx)
	ws.browser.Drain(ctx)
	ws.screenshot.Drain(ctx)
}

func (ws *WriterSet) write(kind EventKind, evt Event) {
	switch kind {
	case KindWindow:
		timer := StartPerfTimer(ws.store, ws.recordingID, string(KindWindow), "")
		w := evt.(*WindowEvent)
		var state []byte
		if len(w.State) > 0 {
			state = w.State
		}
		if _, err := ws.store.InsertWindowEvent(&storage.WindowEventRow{
			RecordingID: ws.recordingID,
			Timestamp:   w.Timestamp(),
			State:       state,
			Title:       w.Title,
			Left:        w.Left, Top: w.Top, Width: w.Width, Height: w.Height,
			WindowID: w.WindowID,
		}); err != nil {
			ws.logger.Error("writer: insert window_event failed", "error", err)
		}
		timer.Stop()

	case KindBrowser:
		timer := StartPerfTimer(ws.store, ws.recordingID, string(KindBrowser), "")
		b := evt.(*BrowserEvent)
		if _, err := ws.store.InsertBrowserEvent(&storage.BrowserEventRow{
			RecordingID: ws.recordingID,
			Timestamp:   b.Timestamp(),
			Message:     b.Message,
		}); err != nil {
			ws.logger.Error("writer: insert browser_event failed", "error", err)
		}
		timer.Stop()

	default:
		a, ok := evt.(*ActionEvent)
		if !ok {
			ws.logger.Warn("writer: unexpected event type for action pool", "kind", kind)
			return
		}
		ws.writeAction(kind, a)
	}
}

func (ws *WriterSet) writeAction(kind EventKind, a *ActionEvent) {
	timer := StartPerfTimer(ws.store, ws.recordingID, string(kind), "")
	defer timer.Stop()

	row := &storage.ActionEventRow{
		RecordingID:            ws.recordingID,
		Name:                   string(kind),
		Timestamp:              a.Timestamp(),
		HasScreenshotTS:        a.HasScreenshotTimestamp,
		ScreenshotTimestamp:    a.ScreenshotTimestamp,
		HasWindowEventTS:       a.HasWindowEventTimestamp,
		WindowEventTimestamp:   a.WindowEventTimestamp,
		MouseButtonName:        string(a.Button),
		MousePressed:           a.Pressed,
		HasMousePressed:        kind == KindMouseDown || kind == KindMouseUp,
		KeyName:                a.Key.Name,
		KeyChar:                a.Key.Char,
		CanonicalKeyName:       a.Canonical.Name,
		CanonicalKeyChar:       a.Canonical.Char,
		ElementState:           a.ElementState,
		Disabled:               a.Disabled,
	}

	switch kind {
	case KindMouseMove, KindMouseDown, KindMouseUp, KindMouseScroll, KindMouseSingleClick, KindMouseDoubleClick:
		row.HasMouse = true
		row.MouseX, row.MouseY = a.MouseX, a.MouseY
		row.MouseDX, row.MouseDY = a.MouseDX, a.MouseDY
	case KindMouseDrag:
		row.HasMouse = true
		row.MouseX, row.MouseY = a.StartX, a.StartY
		row.MouseDX, row.MouseDY = a.DX, a.DY
	}

	if _, err := ws.store.InsertActionEvent(row); err != nil {
		ws.logger.Error("writer: insert action_event failed", "kind", kind, "error", err)
	}
}

func (ws *WriterSet) writeScreenshot(e *ScreenEvent) {
	timer := StartPerfTimer(ws.store, ws.recordingID, string(KindScreenFrame), "")
	defer timer.Stop()

	var pngData, diffPNG, maskPNG []byte
	if ws.recordImages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, e.Image); err != nil {
			ws.logger.Error("writer: png encode screenshot failed", "error", err)
		} else {
			pngData = buf.Bytes()
		}

		var err error
		diffPNG, maskPNG, err = screenshotDiff(ws.prevScreenshot, e.Image)
		if err != nil {
			ws.logger.Warn("writer: screenshot diff failed", "error", err)
		}
	}
	ws.prevScreenshot = e.Image

	if _, err := ws.store.InsertScreenshot(&storage.ScreenshotRow{
		RecordingID:     ws.recordingID,
		Timestamp:       e.Timestamp(),
		PNGData:         pngData,
		PNGDiffData:     diffPNG,
		PNGDiffMaskData: maskPNG,
	}); err != nil {
		ws.logger.Error("writer: insert screenshot failed", "error", err)
	}
}
