package capture

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

type fakeWindowReader struct {
	events []*WindowEvent
	errs   []error
	idx    int
}

func (f *fakeWindowReader) ActiveWindow() (*WindowEvent, error) {
	if f.idx >= len(f.events) {
		f.idx = len(f.events) - 1
	}
	evt, err := f.events[f.idx], f.errs[f.idx]
	f.idx++
	return evt, err
}

func newPollerTestInbox() *Inbox { return NewInbox() }

func TestWindowPollerDropsRepeatedState(t *testing.T) {
	w1 := NewWindowEvent(0, "Editor", "w1", 0, 0, 100, 100)
	w2 := NewWindowEvent(0, "Editor", "w1", 0, 0, 100, 100) // identical state
	reader := &fakeWindowReader{events: []*WindowEvent{w1, w2}, errs: []error{nil, nil}}

	ib := newPollerTestInbox()
	p := NewWindowPoller(reader, ib, NewClock(), slog.Default())
	p.rate = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Run(ctx)
	ib.Close()

	var got []Event
	for {
		evt, ok := ib.Pop()
		if !ok {
			break
		}
		got = append(got, evt)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one pushed window event, got %d", len(got))
	}
}

func TestWindowPollerPushesOnChange(t *testing.T) {
	w1 := NewWindowEvent(0, "Editor", "w1", 0, 0, 100, 100)
	w2 := NewWindowEvent(0, "Browser", "w2", 0, 0, 200, 200)
	reader := &fakeWindowReader{events: []*WindowEvent{w1, w2}, errs: []error{nil, nil}}

	ib := newPollerTestInbox()
	p := NewWindowPoller(reader, ib, NewClock(), slog.Default())
	p.rate = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p.Run(ctx)
	ib.Close()

	var got []Event
	for {
		evt, ok := ib.Pop()
		if !ok {
			break
		}
		got = append(got, evt)
	}
	if len(got) != 2 {
		t.Fatalf("expected two pushed window events, got %d", len(got))
	}
}

func TestWindowPollerIgnoresNotSupportedError(t *testing.T) {
	reader := &fakeWindowReader{events: []*WindowEvent{nil}, errs: []error{ErrNotSupported}}

	ib := newPollerTestInbox()
	p := NewWindowPoller(reader, ib, NewClock(), slog.Default())
	p.rate = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	p.Run(ctx) // must not panic despite nil event
	ib.Close()

	if _, ok := ib.Pop(); ok {
		t.Fatal("expected no events pushed for an unsupported backend")
	}
}
