package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/actiontrace/capture/internal/screencap"
)

// ScreenReader polls screencap.ScreenCapturer at the configured frame rate
// and pushes a ScreenEvent for every frame into the inbox. It never skips a
// tick while the capturer is healthy; a capture error is logged and the
// previous frame interval is retried on the next tick rather than
// terminating the recording.
type ScreenReader struct {
	capturer screencap.ScreenCapturer
	inbox    *Inbox
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewScreenReader builds a reader over an already-constructed capturer. fps
// must be positive; config.Validate clamps it before this is called.
func NewScreenReader(capturer screencap.ScreenCapturer, inbox *Inbox, clock Clock, fps int, logger *slog.Logger) *ScreenReader {
	if fps <= 0 {
		fps = 24
	}
	return &ScreenReader{
		capturer: capturer,
		inbox:    inbox,
		clock:    clock,
		interval: time.Second / time.Duration(fps),
		logger:   logger,
	}
}

// Run captures frames until ctx is canceled, then closes the inbox's screen
// contribution by pushing nothing further (the recorder closes the inbox
// itself right after canceling ctx; it does not wait for this loop to
// return).
func (r *ScreenReader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			img, err := r.capturer.Capture()
			if err != nil {
				r.logger.Warn("screen capture failed", "error", err)
				continue
			}
			ts := r.clock.NowSeconds()
			r.inbox.Push(NewScreenEvent(ts, img))
		}
	}
}
