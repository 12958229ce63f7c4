package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/actiontrace/capture/internal/logging"
	"github.com/actiontrace/capture/internal/plotting"
	"github.com/actiontrace/capture/internal/screencap"
	"github.com/actiontrace/capture/internal/storage"
)

// Recorder is the top-level orchestrator for one recording: it owns the
// Clock, the Inbox, every reader goroutine, the Router, the WriterSet, the
// VideoWriter, and (when enabled) the audio capturer and browser server.
// Constructed once per `record` invocation; never reused across recordings.
type Recorder struct {
	cfg    RecordingConfig
	clock  Clock
	logger *slog.Logger

	store       *storage.Store
	recordingID int64

	inbox   *Inbox
	writers *WriterSet
	video   *VideoWriter
	router  *Router

	audio    *AudioCapturer
	audioW   *AudioWriter
	browser  *BrowserServer
	memSamp  *MemorySampler
	capturer screencap.ScreenCapturer

	cancel context.CancelFunc
}

// New builds a Recorder and creates its output directory and database, but
// does not start capturing — call Start for that.
func New(cfg RecordingConfig) (*Recorder, error) {
	if err := os.MkdirAll(cfg.CaptureDir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create capture dir: %w", err)
	}

	clock := NewClock()
	logger := logging.L("recorder")

	store, err := storage.Create(filepath.Join(cfg.CaptureDir, "recording.db"))
	if err != nil {
		return nil, fmt.Errorf("capture: create storage: %w", err)
	}

	cfgJSON, _ := json.Marshal(cfg)
	var cfgMap map[string]any
	_ = json.Unmarshal(cfgJSON, &cfgMap)

	wallStart, err := clock.WallStart()
	if err != nil {
		store.Close()
		return nil, err
	}

	monitorWidth, monitorHeight := 0, 0
	var capturer screencap.ScreenCapturer
	if cfg.RecordVideo || cfg.RecordFullVideo || cfg.RecordImages {
		capturer, err = screencap.NewScreenCapturer(screencap.DefaultConfig())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("capture: open screen capturer: %w", err)
		}
		monitorWidth, monitorHeight, _ = capturer.GetScreenBounds()
	}

	recordingID, err := store.InsertRecording(&storage.Recording{
		Timestamp:                  float64(wallStart.UnixNano()) / 1e9,
		MonitorWidth:               monitorWidth,
		MonitorHeight:              monitorHeight,
		DoubleClickIntervalSeconds: cfg.DoubleClickInterval.Seconds(),
		DoubleClickDistancePixels:  cfg.DoubleClickDistance,
		Platform:                   runtime.GOOS,
		TaskDescription:            cfg.TaskDescription,
		Config:                     cfgMap,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("capture: insert recording row: %w", err)
	}

	recLogger := logging.WithRecording(logger, recordingID)

	inbox := NewInbox()
	writers := NewWriterSet(store, recordingID, cfg.WriterQueueSize, cfg.RecordImages, recLogger)

	r := &Recorder{
		cfg:         cfg,
		clock:       clock,
		store:       store,
		recordingID: recordingID,
		inbox:       inbox,
		writers:     writers,
		capturer:    capturer,
	}
	r.logger = recLogger
	return r, nil
}

// Start launches every reader, the router, the video writer, and (if
// enabled) audio/browser/memory collection. Returns once everything has
// been started; capture continues on background goroutines until Stop is
// called.
func (r *Recorder) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	var encoderSink EncoderSink = noopEncoderSink{}
	if r.cfg.RecordVideo || r.cfg.RecordFullVideo {
		pf := screencap.PixelFormatBGRA
		if r.cfg.VideoPixelFormat == "yuv444p" {
			pf = screencap.PixelFormatRGBA
		}
		ecfg := screencap.DefaultEncoderConfig()
		ecfg.FPS = r.cfg.VideoFPS

		vw, err := NewVideoWriter(
			r.store, r.recordingID,
			filepath.Join(r.cfg.CaptureDir, "video.mp4"),
			ecfg, pf, r.cfg.EncoderQueueSize,
			func(ts float64) { r.store.SetVideoStartTime(r.recordingID, ts) },
			r.logger,
		)
		if err != nil {
			return fmt.Errorf("capture: start video writer: %w", err)
		}
		r.video = vw
		encoderSink = vw
		go vw.Run()
	}

	r.router = NewRouter(r.inbox, r.writers, encoderSink, r.cfg.RecordVideo, r.cfg.RecordFullVideo, r.cfg.RecordWindowData, r.logger)
	go r.router.Run()

	if r.capturer != nil {
		screenReader := NewScreenReader(r.capturer, r.inbox, r.clock, r.cfg.VideoFPS, r.logger)
		go screenReader.Run(ctx)
	}

	if r.cfg.RecordWindowData {
		poller := NewWindowPoller(NewWindowReader(), r.inbox, r.clock, r.logger)
		go poller.Run(ctx)
	}

	inputReader := NewInputReader(r.inbox, r.clock, r.cfg.StopSequences, func() { r.cancel() })
	go func() {
		if err := inputReader.Run(); err != nil {
			r.logger.Warn("input hook exited", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		inputReader.Stop()
	}()

	if r.cfg.RecordBrowserEvents {
		r.browser = NewBrowserServer(r.cfg.BrowserWebsocketServerIP, r.cfg.BrowserWebsocketPort, r.cfg.BrowserWebsocketMaxSize, r.inbox, r.clock, r.logger)
		go r.browser.Run(ctx)
	}

	if r.cfg.LogMemory {
		sampler, err := NewMemorySampler(r.store, r.recordingID, r.clock)
		if err != nil {
			r.logger.Warn("memory sampler unavailable", "error", err)
		} else {
			r.memSamp = sampler
			go sampler.Run(ctx)
		}
	}

	if r.cfg.RecordAudio {
		audioCap, err := NewAudioCapturer(r.clock, r.logger)
		if err != nil {
			r.logger.Warn("audio capture unavailable", "error", err)
		} else {
			r.audio = audioCap
			r.audioW = NewAudioWriter(r.store, r.recordingID)
			if err := audioCap.Start(ctx); err != nil {
				r.logger.Warn("audio capture failed to start", "error", err)
			}
		}
	}

	return nil
}

// Stop closes every reader, drains every writer, finalizes the video
// container, and runs the storage post-processing pass. Returns the final
// profiling summary.
func (r *Recorder) Stop(ctx context.Context) (*ProfilingSummary, error) {
	if r.cancel != nil {
		r.cancel()
	}

	if r.audio != nil {
		r.audio.Close()
		samples := r.audio.Samples()
		if len(samples) > 0 {
			flac, err := EncodeFLAC(samples, audioSampleRate)
			if err != nil {
				r.logger.Error("flac encode failed", "error", err)
			} else {
				text, wordsJSON, err := TranscribeAudio(samples, audioSampleRate)
				if err != nil {
					r.logger.Warn("transcription failed", "error", err)
				}
				r.audioW.Write(r.clock.NowSeconds(), flac, text, wordsJSON, audioSampleRate)
			}
		}
	}

	r.inbox.Close()
	r.writers.Close(5 * time.Second)

	if r.video != nil {
		videoCtx, videoCancel := context.WithTimeout(ctx, 30*time.Second)
		defer videoCancel()
		r.video.Wait(videoCtx)
	}

	if r.capturer != nil {
		r.capturer.Close()
	}

	if err := r.store.PostProcess(r.recordingID); err != nil {
		r.logger.Error("postprocess failed", "error", err)
	}

	if r.cfg.PlotPerformance {
		if err := r.renderPerformancePlot(); err != nil {
			r.logger.Warn("performance plot failed", "error", err)
		}
	}

	summary := &ProfilingSummary{RecordingID: r.recordingID}
	if err := writeProfilingSummary(r.cfg.CaptureDir, summary); err != nil {
		r.logger.Warn("failed to write profiling.json", "error", err)
	}

	if err := r.store.Close(); err != nil {
		return summary, err
	}
	return summary, nil
}

// ProfilingSummary is the contents of profiling.json written at the end of
// a recording.
type ProfilingSummary struct {
	RecordingID int64 `json:"recording_id"`
}

func writeProfilingSummary(dir string, s *ProfilingSummary) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "profiling.json"), b, 0o644)
}

// noopEncoderSink discards every frame; used when no video recording was
// requested so the router never needs a nil check on its encoder sink.
type noopEncoderSink struct{}

func (noopEncoderSink) Submit(*ScreenEvent) {}

func (r *Recorder) renderPerformancePlot() error {
	perf, err := r.store.PerformanceStats(r.recordingID)
	if err != nil {
		return fmt.Errorf("capture: load performance_stat: %w", err)
	}
	mem, err := r.store.MemoryStats(r.recordingID)
	if err != nil {
		return fmt.Errorf("capture: load memory_stat: %w", err)
	}
	if len(perf) == 0 && len(mem) == 0 {
		return nil
	}

	path := filepath.Join(r.cfg.CaptureDir, fmt.Sprintf("performance-%d.png", time.Now().Unix()))
	return plotting.GonumRenderer{}.Render(path, perf, mem)
}
