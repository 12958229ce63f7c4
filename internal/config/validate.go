package config

import (
	"fmt"
)

// ValidationResult separates fatal configuration errors (block startup)
// from warnings (logged, auto-corrected in place).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validPixelFormats = map[string]bool{
	"yuv420p": true,
	"yuv444p": true,
}

// Validate checks the config for invalid values. Dangerous zero-values that
// would cause panics downstream are clamped to safe defaults and reported as
// warnings; structurally invalid values (that the rest of the pipeline has
// no safe fallback for) are fatal.
func (c *Config) Validate() ValidationResult {
	var result ValidationResult

	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		result.Warnings = append(result.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error), defaulting to info", c.LogLevel))
		c.LogLevel = "info"
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		result.Warnings = append(result.Warnings, fmt.Errorf("log_format %q is not valid (use text or json), defaulting to text", c.LogFormat))
		c.LogFormat = "text"
	}

	if c.VideoPixelFormat != "" && !validPixelFormats[c.VideoPixelFormat] {
		result.Fatals = append(result.Fatals, fmt.Errorf("video_pixel_format %q is not supported", c.VideoPixelFormat))
	}

	if c.VideoFPS <= 0 {
		result.Warnings = append(result.Warnings, fmt.Errorf("video_fps %d is invalid, clamping to 24", c.VideoFPS))
		c.VideoFPS = 24
	}

	if c.VideoCRF < 0 || c.VideoCRF > 51 {
		result.Warnings = append(result.Warnings, fmt.Errorf("video_crf %d out of range [0,51], clamping to 0", c.VideoCRF))
		c.VideoCRF = 0
	}

	if c.DoubleClickIntervalSeconds <= 0 {
		result.Warnings = append(result.Warnings, fmt.Errorf("double_click_interval_seconds %v is invalid, clamping to 0.5", c.DoubleClickIntervalSeconds))
		c.DoubleClickIntervalSeconds = 0.5
	}

	if c.DoubleClickDistancePixels <= 0 {
		result.Warnings = append(result.Warnings, fmt.Errorf("double_click_distance_pixels %v is invalid, clamping to 5", c.DoubleClickDistancePixels))
		c.DoubleClickDistancePixels = 5
	}

	for _, seq := range c.StopSequences {
		if len(seq) == 0 {
			result.Fatals = append(result.Fatals, fmt.Errorf("stop_sequences entries must be non-empty"))
			break
		}
	}

	if c.BrowserWebsocketPort < 0 || c.BrowserWebsocketPort > 65535 {
		result.Fatals = append(result.Fatals, fmt.Errorf("browser_websocket_port %d out of range", c.BrowserWebsocketPort))
	}

	if c.WriterQueueSize < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("writer_queue_size %d is below minimum 1, clamping", c.WriterQueueSize))
		c.WriterQueueSize = 1
	}

	if c.EncoderQueueSize < 1 {
		result.Warnings = append(result.Warnings, fmt.Errorf("encoder_queue_size %d is below minimum 1, clamping", c.EncoderQueueSize))
		c.EncoderQueueSize = 1
	}

	return result
}
