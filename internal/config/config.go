// Package config loads the process-level application configuration: log
// level/format and the default values used to build a recording's immutable
// RecordingConfig (see internal/capture.RecordingConfig). This layer is the
// only place that touches viper; everything downstream receives a plain
// struct copied by value.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the outer, mutable process configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	RecordVideo              bool `mapstructure:"record_video"`
	RecordFullVideo          bool `mapstructure:"record_full_video"`
	RecordImages             bool `mapstructure:"record_images"`
	RecordAudio              bool `mapstructure:"record_audio"`
	RecordWindowData         bool `mapstructure:"record_window_data"`
	RecordActiveElementState bool `mapstructure:"record_read_active_element_state"`
	RecordBrowserEvents      bool `mapstructure:"record_browser_events"`
	PlotPerformance          bool `mapstructure:"plot_performance"`
	LogMemory                bool `mapstructure:"log_memory"`
	DBEcho                   bool `mapstructure:"db_echo"`

	VideoEncoding    string `mapstructure:"video_encoding"`
	VideoPixelFormat string `mapstructure:"video_pixel_format"`
	VideoFPS         int    `mapstructure:"video_fps"`
	VideoCRF         int    `mapstructure:"video_crf"`
	VideoPreset      string `mapstructure:"video_preset"`

	DoubleClickIntervalSeconds float64 `mapstructure:"double_click_interval_seconds"`
	DoubleClickDistancePixels  float64 `mapstructure:"double_click_distance_pixels"`

	StopSequences [][]string `mapstructure:"stop_sequences"`

	BrowserWebsocketServerIP string `mapstructure:"browser_websocket_server_ip"`
	BrowserWebsocketPort     int    `mapstructure:"browser_websocket_port"`
	BrowserWebsocketMaxSize  int    `mapstructure:"browser_websocket_max_size"`

	WriterQueueSize  int `mapstructure:"writer_queue_size"`
	EncoderQueueSize int `mapstructure:"encoder_queue_size"`
}

// Default returns the built-in configuration, matching the recognized
// options and defaults in the external interfaces contract.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",

		RecordVideo:         true,
		RecordFullVideo:     false,
		RecordImages:        false,
		RecordAudio:         false,
		RecordWindowData:    true,
		RecordBrowserEvents: false,
		PlotPerformance:     false,
		LogMemory:           true,

		VideoEncoding:    "libx264",
		VideoPixelFormat: "yuv444p",
		VideoFPS:         24,
		VideoCRF:         0,
		VideoPreset:      "veryslow",

		DoubleClickIntervalSeconds: 0.5,
		DoubleClickDistancePixels:  5,

		StopSequences: [][]string{
			{"o", "a", ".", "s", "t", "o", "p"},
			{"ctrl", "ctrl", "ctrl"},
		},

		BrowserWebsocketServerIP: "127.0.0.1",
		BrowserWebsocketPort:     8765,
		BrowserWebsocketMaxSize:  4 * 1024 * 1024,

		WriterQueueSize:  4096,
		EncoderQueueSize: 256,
	}
}

// Load reads configuration from cfgFile (or the default search path) layered
// over Default(), with environment variable overrides under the
// ACTIONTRACE_ prefix.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("actiontrace")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("ACTIONTRACE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.Validate()
	if result.HasFatals() {
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// GetDataDir returns the platform-specific default parent directory for
// capture output when --capture-dir is not given.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ActionTrace", "recordings")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ActionTrace", "recordings")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "actiontrace", "recordings")
		}
		return filepath.Join(os.Getenv("HOME"), ".local", "share", "actiontrace", "recordings")
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ActionTrace")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ActionTrace")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "actiontrace")
		}
		return filepath.Join(os.Getenv("HOME"), ".local", "share", "actiontrace")
	}
}
