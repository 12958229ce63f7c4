package capture

import (
	"context"
	"log/slog"
	"time"
)

// WindowReader is the platform backend for active-window polling.
type WindowReader interface {
	// ActiveWindow returns the currently focused window's state. Returns
	// ErrNotSupported if no backend is available on this platform.
	ActiveWindow() (*WindowEvent, error)
}

// NewWindowReader constructs the platform's default WindowReader. Defined
// per-OS in window_<goos>.go.
func NewWindowReader() WindowReader { return newWindowReader() }

// notSupportedWindowReader is shared by builds without a working backend.
type notSupportedWindowReader struct{}

func (notSupportedWindowReader) ActiveWindow() (*WindowEvent, error) { return nil, ErrNotSupported }

// windowPoller drives a WindowReader at a fixed rate, pushing a WindowEvent
// to the inbox only when it differs from the previously pushed one (§3
// invariant: consecutive window rows must differ in at least one field).
type windowPoller struct {
	reader WindowReader
	inbox  *Inbox
	clock  Clock
	rate   time.Duration
	logger *slog.Logger

	last *WindowEvent
}

// NewWindowPoller polls at 10Hz, matching the capture cadence used for
// active-element/window context elsewhere in the pipeline.
func NewWindowPoller(reader WindowReader, inbox *Inbox, clock Clock, logger *slog.Logger) *windowPoller {
	return &windowPoller{reader: reader, inbox: inbox, clock: clock, rate: 100 * time.Millisecond, logger: logger}
}

func (p *windowPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evt, err := p.reader.ActiveWindow()
			if err != nil {
				if err != ErrNotSupported {
					p.logger.Warn("active window poll failed", "error", err)
				}
				continue
			}
			if p.last != nil && p.last.Equal(evt) {
				continue
			}
			evt.ts = p.clock.NowSeconds()
			p.inbox.Push(evt)
			p.last = evt
		}
	}
}
