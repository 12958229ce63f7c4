package capture

import "log/slog"

// Router is the single consumer of the Inbox. It decorates action events
// with the most recent screen/window context and applies the action-gated
// persistence policy: a screen frame or window state is only promoted to
// its writer (and, for screens, to the video encoder) once an action
// actually references it, never merely because it arrived.
//
// Router owns all cross-stream ordering state; readers themselves hold
// none of it, which is what lets every reader run as an independent
// goroutine with no shared mutable state beyond the Inbox.
type Router struct {
	inbox  *Inbox
	logger *slog.Logger

	writers *WriterSet
	encoder EncoderSink

	prevScreen *ScreenEvent
	prevWindow *WindowEvent

	prevSavedScreenTS float64
	prevSavedWindowTS float64
	haveSavedScreenTS bool
	haveSavedWindowTS bool

	recordVideo      bool
	recordFullVideo  bool
	recordWindowData bool
}

// EncoderSink receives frames promoted by the action-gate policy.
type EncoderSink interface {
	Submit(evt *ScreenEvent)
}

// NewRouter builds a router over the given writer set and encoder sink.
// recordWindowData controls whether an action arriving before the first
// window event is discarded (mirrors the screen-capture requirement, but
// only when window capture was actually requested).
func NewRouter(inbox *Inbox, writers *WriterSet, encoder EncoderSink, recordVideo, recordFullVideo, recordWindowData bool, logger *slog.Logger) *Router {
	return &Router{
		inbox: inbox, writers: writers, encoder: encoder,
		recordVideo: recordVideo, recordFullVideo: recordFullVideo, recordWindowData: recordWindowData,
		logger: logger,
	}
}

// Run drains the inbox until it is closed and drained, then signals every
// writer and the encoder with the shutdown sentinel.
func (r *Router) Run() {
	for {
		evt, ok := r.inbox.Pop()
		if !ok {
			break
		}
		r.route(evt)
	}
	r.writers.Broadcast(Sentinel)
	r.encoder.Submit(nil)
}

func (r *Router) route(evt Event) {
	switch e := evt.(type) {
	case *ScreenEvent:
		r.prevScreen = e
		if r.recordFullVideo {
			r.encoder.Submit(e)
		}
		return

	case *WindowEvent:
		if r.prevWindow != nil && r.prevWindow.Equal(e) {
			return
		}
		r.prevWindow = e
		return

	case *BrowserEvent:
		r.writers.Send(KindBrowser, e)
		return

	case *ActionEvent:
		r.routeAction(e)
		return

	default:
		r.logger.Warn("router: unrecognized event kind", "kind", evt.Kind())
	}
}

// routeAction decorates the action with the most recent screen/window
// context, discarding it if that context is missing; emits the action
// itself; then, only if the referenced screen/window hasn't already been
// persisted, promotes it too.
func (r *Router) routeAction(e *ActionEvent) {
	if r.prevScreen == nil {
		r.logger.Warn("router: discarding action before first screen", "kind", e.Kind())
		return
	}
	if r.recordWindowData && r.prevWindow == nil {
		r.logger.Warn("router: discarding action before first window", "kind", e.Kind())
		return
	}

	e.ScreenshotTimestamp = r.prevScreen.Timestamp()
	e.HasScreenshotTimestamp = true
	if r.prevWindow != nil {
		e.WindowEventTimestamp = r.prevWindow.Timestamp()
		e.HasWindowEventTimestamp = true
	}

	r.writers.Send(e.Kind(), e)

	if !r.haveSavedScreenTS || r.prevSavedScreenTS < r.prevScreen.Timestamp() {
		r.writers.SendScreenshot(r.prevScreen)
		if r.recordVideo && !r.recordFullVideo {
			r.encoder.Submit(r.prevScreen)
		}
		r.prevSavedScreenTS = r.prevScreen.Timestamp()
		r.haveSavedScreenTS = true
	}

	if r.prevWindow != nil && (!r.haveSavedWindowTS || r.prevSavedWindowTS < r.prevWindow.Timestamp()) {
		r.writers.Send(KindWindow, r.prevWindow)
		r.prevSavedWindowTS = r.prevWindow.Timestamp()
		r.haveSavedWindowTS = true
	}
}
