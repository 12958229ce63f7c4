package config

import (
	"errors"
	"testing"
)

func TestValidateInvalidPixelFormatIsFatal(t *testing.T) {
	cfg := Default()
	cfg.VideoPixelFormat = "yuv422p"
	result := cfg.Validate()
	if !result.HasFatals() {
		t.Fatal("unsupported pixel format should be fatal")
	}
}

func TestValidateInvalidPortIsFatal(t *testing.T) {
	cfg := Default()
	cfg.BrowserWebsocketPort = 70000
	result := cfg.Validate()
	if !result.HasFatals() {
		t.Fatal("out-of-range port should be fatal")
	}
}

func TestValidateEmptyStopSequenceIsFatal(t *testing.T) {
	cfg := Default()
	cfg.StopSequences = [][]string{{}}
	result := cfg.Validate()
	if !result.HasFatals() {
		t.Fatal("empty stop sequence should be fatal")
	}
}

func TestValidateFPSClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.VideoFPS = 0
	result := cfg.Validate()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for clamped fps")
	}
	if cfg.VideoFPS != 24 {
		t.Fatalf("VideoFPS = %d, want 24 (clamped)", cfg.VideoFPS)
	}
}

func TestValidateCRFClamping(t *testing.T) {
	cfg := Default()
	cfg.VideoCRF = 99
	result := cfg.Validate()
	if result.HasFatals() {
		t.Fatalf("clamped crf should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.VideoCRF != 0 {
		t.Fatalf("VideoCRF = %d, want 0 (clamped)", cfg.VideoCRF)
	}
}

func TestValidateDoubleClickDefaultsClamping(t *testing.T) {
	cfg := Default()
	cfg.DoubleClickIntervalSeconds = -1
	cfg.DoubleClickDistancePixels = 0
	result := cfg.Validate()
	if result.HasFatals() {
		t.Fatalf("clamped double-click settings should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.DoubleClickIntervalSeconds != 0.5 {
		t.Fatalf("DoubleClickIntervalSeconds = %v, want 0.5 (clamped)", cfg.DoubleClickIntervalSeconds)
	}
	if cfg.DoubleClickDistancePixels != 5 {
		t.Fatalf("DoubleClickDistancePixels = %v, want 5 (clamped)", cfg.DoubleClickDistancePixels)
	}
}

func TestValidateUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.Validate()
	if result.HasFatals() {
		t.Fatalf("unknown log level should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q, want info (defaulted)", cfg.LogLevel)
	}
}

func TestValidateInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.Validate()
	if result.HasFatals() {
		t.Fatalf("invalid log format should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("LogFormat = %q, want text (defaulted)", cfg.LogFormat)
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, errors.New("fatal"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestValidateDefaultConfigHasNoFatals(t *testing.T) {
	cfg := Default()
	result := cfg.Validate()
	if result.HasFatals() {
		t.Fatalf("default config should never be fatal: %v", result.Fatals)
	}
}
