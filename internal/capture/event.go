package capture

import "image"

// EventKind tags every event flowing through the inbox and writer queues.
type EventKind string

const (
	KindMouseMove        EventKind = "mouse.move"
	KindMouseDown        EventKind = "mouse.down"
	KindMouseUp          EventKind = "mouse.up"
	KindMouseScroll      EventKind = "mouse.scroll"
	KindMouseSingleClick EventKind = "mouse.singleclick"
	KindMouseDoubleClick EventKind = "mouse.doubleclick"
	KindMouseDrag        EventKind = "mouse.drag"
	KindKeyDown          EventKind = "key.down"
	KindKeyUp            EventKind = "key.up"
	KindKeyType          EventKind = "key.type"
	KindScreenFrame      EventKind = "screen.frame"
	KindAudioChunk       EventKind = "audio.chunk"
	KindWindow           EventKind = "window"
	KindBrowser          EventKind = "browser.message"
	KindSentinel         EventKind = "sentinel"
)

// Event is the tagged-variant interface implemented by every concrete event
// struct below. Replaces the source's dispatch-on-type-string with a
// compile-time-checked switch over Kind() at every consumption site (the
// router, the merge engine, the writers).
type Event interface {
	Kind() EventKind
	Timestamp() float64
}

// baseEvent factors the two fields every event carries.
type baseEvent struct {
	kind EventKind
	ts   float64
}

func (b baseEvent) Kind() EventKind   { return b.kind }
func (b baseEvent) Timestamp() float64 { return b.ts }

// Key identifies a single keyboard key, both as captured (layout-dependent)
// and canonicalized (layout-normalized, used for stop-sequence matching and
// cross-locale comparisons).
type Key struct {
	Name string // e.g. "a", "shift", "f5"
	Char string // printable character, if any
	VK   int    // platform virtual key code
}

// CanonicalKey is the layout-normalized identity of a Key.
type CanonicalKey = Key

// MouseButton names a mouse button.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// ActionEvent is a raw input primitive: move, down, up, scroll, or (after
// merging) singleclick/doubleclick/drag/type.
type ActionEvent struct {
	baseEvent

	MouseX, MouseY   float64
	MouseDX, MouseDY float64
	Button           MouseButton
	Pressed          bool

	Key       Key
	Canonical CanonicalKey

	// Text and Keys are populated only on KindKeyType.
	Text string
	Keys []string

	// StartX/StartY/DX/DY are populated only on KindMouseDrag.
	StartX, StartY float64
	DX, DY         float64

	// Children carries the primitive events a merged event was built from.
	Children []*ActionEvent

	// Injected marks a synthetic/replayed event; readers drop these rather
	// than forwarding them to the inbox.
	Injected bool

	// ElementState is an opaque, optionally-populated serialized blob
	// describing the UI element under the cursor at event time.
	ElementState []byte

	// ScreenshotTimestamp/WindowEventTimestamp are set by the router when
	// the event is decorated with capture context (§4.7); the matching Has*
	// flag records whether that happened, so "not yet decorated" is
	// distinct from "decorated with timestamp 0".
	ScreenshotTimestamp   float64
	HasScreenshotTimestamp bool
	WindowEventTimestamp   float64
	HasWindowEventTimestamp bool

	Disabled bool
}

func NewActionEvent(kind EventKind, ts float64) *ActionEvent {
	return &ActionEvent{baseEvent: baseEvent{kind: kind, ts: ts}}
}

// ScreenEvent carries a captured frame. Image is a reference, not a copy —
// ownership transfers from the screen reader to whoever holds prevScreen
// (the router), and then to the encoder queue if promoted.
type ScreenEvent struct {
	baseEvent
	Image *image.RGBA
}

func NewScreenEvent(ts float64, img *image.RGBA) *ScreenEvent {
	return &ScreenEvent{baseEvent: baseEvent{kind: KindScreenFrame, ts: ts}, Image: img}
}

// WindowEvent carries active-window state.
type WindowEvent struct {
	baseEvent
	Title                     string
	Left, Top, Width, Height int
	WindowID                  string
	State                     []byte // opaque serialized extra state (JSON)
}

func NewWindowEvent(ts float64, title, windowID string, left, top, width, height int) *WindowEvent {
	return &WindowEvent{
		baseEvent: baseEvent{kind: KindWindow, ts: ts},
		Title:     title,
		WindowID:  windowID,
		Left:      left, Top: top, Width: width, Height: height,
	}
}

// Equal reports whether two window events describe the same window state,
// per the "consecutive window events must differ in at least one field"
// invariant (§3).
func (w *WindowEvent) Equal(o *WindowEvent) bool {
	if o == nil {
		return false
	}
	return w.Title == o.Title && w.WindowID == o.WindowID &&
		w.Left == o.Left && w.Top == o.Top && w.Width == o.Width && w.Height == o.Height
}

// BrowserEvent wraps an inbound message from the browser side-channel.
type BrowserEvent struct {
	baseEvent
	Message []byte // raw JSON
}

func NewBrowserEvent(ts float64, message []byte) *BrowserEvent {
	return &BrowserEvent{baseEvent: baseEvent{kind: KindBrowser, ts: ts}, Message: message}
}

// AudioChunk carries raw PCM samples captured by the audio reader. Never
// routed through the inbox/router — the audio writer owns the whole-session
// buffer directly (see internal/capture/audio.go).
type AudioChunk struct {
	baseEvent
	Samples []int16
}

func NewAudioChunk(ts float64, samples []int16) *AudioChunk {
	return &AudioChunk{baseEvent: baseEvent{kind: KindAudioChunk, ts: ts}, Samples: samples}
}

// sentinelEvent signals "no more input; drain and exit" to a downstream
// worker. A single shared value is reused; workers compare by Kind().
type sentinelEvent struct{ baseEvent }

// Sentinel is the shared terminal value pushed to every writer/encoder queue
// on shutdown.
var Sentinel Event = sentinelEvent{baseEvent{kind: KindSentinel}}

// IsSentinel reports whether an event is the shutdown sentinel.
func IsSentinel(e Event) bool { return e != nil && e.Kind() == KindSentinel }
