package capture

import (
	"errors"
	"strconv"
	"strings"
	"sync"
)

// itoa renders a small non-negative identifier (window handle, virtual-key
// code) as a string without pulling in fmt at every hot-path call site.
func itoa(n int) string { return strconv.Itoa(n) }

// ErrNotSupported is returned by a platform hook backend when the host OS
// has no implementation wired up.
var ErrNotSupported = errors.New("capture: input hook not supported on this platform")

// InputHook is the platform-specific global keyboard/mouse hook: it
// observes real input system-wide and delivers it to a callback, the
// direction the source's pynput-based listener runs in.
type InputHook interface {
	// Start installs the hook and blocks until Stop is called or the hook
	// fails irrecoverably. emit is called from the hook's own thread/
	// goroutine for every observed primitive; it must not block.
	Start(emit func(*ActionEvent)) error

	// Stop uninstalls the hook and makes a blocked Start return. Safe to
	// call from another goroutine while Start is running.
	Stop() error
}

// NewInputHook constructs the platform's InputHook. Defined per-OS in
// input_<goos>.go; the _other.go fallback returns a hook whose Start
// immediately fails with ErrNotSupported.
func NewInputHook() InputHook { return newInputHook() }

// notSupportedHook is shared by every build without a working platform
// backend (no CGO, or an OS we don't target).
type notSupportedHook struct{}

func (notSupportedHook) Start(func(*ActionEvent)) error { return ErrNotSupported }
func (notSupportedHook) Stop() error                    { return nil }

// InputReader drains a platform InputHook into the shared Inbox, tagging
// every event with the Clock and checking it against the configured stop
// sequences.
type InputReader struct {
	hook   InputHook
	inbox  *Inbox
	clock  Clock
	stop   *stopSequenceDetector
	onStop func()

	mu      sync.Mutex
	started bool
}

// NewInputReader builds a reader over the platform's default hook.
func NewInputReader(inbox *Inbox, clock Clock, stopSequences [][]string, onStop func()) *InputReader {
	return &InputReader{
		hook:   NewInputHook(),
		inbox:  inbox,
		clock:  clock,
		stop:   newStopSequenceDetector(stopSequences),
		onStop: onStop,
	}
}

// Run installs the hook and blocks until it exits. Intended to be run in
// its own goroutine by the recorder.
func (r *InputReader) Run() error {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	return r.hook.Start(func(evt *ActionEvent) {
		if evt.Injected {
			return
		}
		evt.ts = r.clock.NowSeconds()
		r.inbox.Push(evt)
		if evt.Kind() == KindKeyDown && r.stop.Feed(evt.Canonical) {
			if r.onStop != nil {
				r.onStop()
			}
		}
	})
}

// Stop uninstalls the hook.
func (r *InputReader) Stop() error {
	return r.hook.Stop()
}

// stopSequenceDetector watches canonical key-down events for a match
// against any configured ordered sequence. Each sequence tracks its own
// progress independently; a mismatch resets that sequence's progress to
// either 0 or 1 (if the mismatching key is itself the sequence's first
// key), matching how a user retrying a stop phrase from the start is
// expected to work.
type stopSequenceDetector struct {
	mu        sync.Mutex
	sequences [][]string
	progress  []int
}

func newStopSequenceDetector(sequences [][]string) *stopSequenceDetector {
	d := &stopSequenceDetector{sequences: sequences, progress: make([]int, len(sequences))}
	return d
}

// Feed records one canonical key-down and reports whether it completed any
// configured stop sequence.
func (d *stopSequenceDetector) Feed(k CanonicalKey) bool {
	if len(d.sequences) == 0 {
		return false
	}
	name := strings.ToLower(k.Name)

	d.mu.Lock()
	defer d.mu.Unlock()

	matched := false
	for i, seq := range d.sequences {
		want := strings.ToLower(seq[d.progress[i]])
		if name == want {
			d.progress[i]++
			if d.progress[i] == len(seq) {
				matched = true
				d.progress[i] = 0
			}
		} else if name == strings.ToLower(seq[0]) {
			d.progress[i] = 1
		} else {
			d.progress[i] = 0
		}
	}
	return matched
}
