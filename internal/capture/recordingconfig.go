package capture

import "time"

// RecordingConfig is the immutable set of parameters a single recording was
// started with. Unlike the outer, mutable config.Config (viper-backed,
// process-level), a RecordingConfig is built once by the CLI layer and
// threaded by value into every constructor (readers, router, writers,
// encoder, audio) — nothing downstream of recorder.New mutates it.
type RecordingConfig struct {
	TaskDescription string
	CaptureDir      string

	RecordVideo              bool
	RecordFullVideo          bool
	RecordImages             bool
	RecordAudio              bool
	RecordWindowData         bool
	RecordActiveElementState bool
	RecordBrowserEvents      bool
	PlotPerformance          bool
	LogMemory                bool

	VideoEncoding    string
	VideoPixelFormat string
	VideoFPS         int
	VideoCRF         int
	VideoPreset      string

	DoubleClickInterval time.Duration
	DoubleClickDistance float64

	StopSequences [][]string

	BrowserWebsocketServerIP string
	BrowserWebsocketPort     int
	BrowserWebsocketMaxSize  int

	WriterQueueSize  int
	EncoderQueueSize int
}
