package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/actiontrace/capture/internal/capture"
	"github.com/actiontrace/capture/internal/config"
	"github.com/actiontrace/capture/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagCaptureDir string
	flagNoVideo    bool
	flagFullVideo  bool
	flagImages     bool
	flagAudio      bool
	flagBrowser    bool
)

var recordCmd = &cobra.Command{
	Use:   "record <task description>",
	Short: "Start a recording session",
	Long:  `record captures mouse, keyboard, screen, window, browser, and audio activity until a configured stop sequence is typed or the process receives SIGINT/SIGTERM.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRecord(args[0])
	},
}

func init() {
	recordCmd.Flags().StringVar(&flagCaptureDir, "capture-dir", "", "directory to write the recording into (default: a timestamped directory under the platform data dir)")
	recordCmd.Flags().BoolVar(&flagNoVideo, "no-video", false, "disable action-gated video recording")
	recordCmd.Flags().BoolVar(&flagFullVideo, "full-video", false, "record every screen frame instead of only frames following an action")
	recordCmd.Flags().BoolVar(&flagImages, "images", false, "additionally store PNG image data (and its diff) on each screenshot row the router promotes for an action")
	recordCmd.Flags().BoolVar(&flagAudio, "audio", false, "record and transcribe narration audio")
	recordCmd.Flags().BoolVar(&flagBrowser, "browser", false, "accept browser extension events over the loopback websocket server")
}

func runRecord(taskDescription string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	log = logging.L("main")

	captureDir := flagCaptureDir
	if captureDir == "" {
		captureDir = filepath.Join(config.GetDataDir(), defaultRecordingName())
	}

	rc := buildRecordingConfig(cfg, taskDescription, captureDir)

	recorder, err := capture.New(rc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start recording: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := recorder.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start capture pipeline: %v\n", err)
		os.Exit(1)
	}

	log.Info("recording started", "capture_dir", captureDir, "task", taskDescription)
	fmt.Printf("Recording to %s\n", captureDir)
	fmt.Println("Type the configured stop sequence or press Ctrl+C to finish.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("stopping recording")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer stopCancel()

	summary, err := recorder.Stop(stopCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error finalizing recording: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recording complete (id=%d). Artifacts written to %s\n", summary.RecordingID, captureDir)
}

func buildRecordingConfig(cfg *config.Config, taskDescription, captureDir string) capture.RecordingConfig {
	recordVideo := cfg.RecordVideo && !flagNoVideo
	fullVideo := cfg.RecordFullVideo || flagFullVideo
	images := cfg.RecordImages || flagImages
	audio := cfg.RecordAudio || flagAudio
	browser := cfg.RecordBrowserEvents || flagBrowser

	return capture.RecordingConfig{
		TaskDescription:          taskDescription,
		CaptureDir:               captureDir,
		RecordVideo:              recordVideo,
		RecordFullVideo:          fullVideo,
		RecordImages:             images,
		RecordAudio:              audio,
		RecordWindowData:         cfg.RecordWindowData,
		RecordActiveElementState: cfg.RecordActiveElementState,
		RecordBrowserEvents:      browser,
		PlotPerformance:          cfg.PlotPerformance,
		LogMemory:                cfg.LogMemory,
		VideoEncoding:            cfg.VideoEncoding,
		VideoPixelFormat:         cfg.VideoPixelFormat,
		VideoFPS:                 cfg.VideoFPS,
		VideoCRF:                 cfg.VideoCRF,
		VideoPreset:              cfg.VideoPreset,
		DoubleClickInterval:      time.Duration(cfg.DoubleClickIntervalSeconds * float64(time.Second)),
		DoubleClickDistance:      cfg.DoubleClickDistancePixels,
		StopSequences:            cfg.StopSequences,
		BrowserWebsocketServerIP: cfg.BrowserWebsocketServerIP,
		BrowserWebsocketPort:     cfg.BrowserWebsocketPort,
		BrowserWebsocketMaxSize:  cfg.BrowserWebsocketMaxSize,
		WriterQueueSize:          cfg.WriterQueueSize,
		EncoderQueueSize:         cfg.EncoderQueueSize,
	}
}

func defaultRecordingName() string {
	return "recording-" + strconv.FormatInt(time.Now().Unix(), 10)
}
