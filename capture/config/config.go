// Package config loads capture pipeline settings from file, environment,
// and flags via spf13/viper, mirroring the teacher's internal/config
// package: a mapstructure-tagged struct, a Default() baseline, and a single
// Load entry point layering sources in viper's standard precedence order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level settings object for a capture process: the
// CaptureCtx/Sequencer construction parameters plus process-wide ambient
// settings (log level, storage backend selection, livestream toggle).
type Config struct {
	FrameRate       int           `mapstructure:"frame_rate"`
	BreakInterval   time.Duration `mapstructure:"break_interval"`
	CodecName       string        `mapstructure:"codec"`
	CodecOptions    string        `mapstructure:"codec_options"`
	OutputDir       string        `mapstructure:"output_dir"`
	FilenamePrefix  string        `mapstructure:"filename_prefix"`
	DrawTimestamp   bool          `mapstructure:"draw_timestamp"`
	MarkerPolicy    string        `mapstructure:"marker_policy"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Storage StorageConfig `mapstructure:"storage"`

	Livestream LivestreamConfig `mapstructure:"livestream"`
}

// StorageConfig selects and parameterises one capture/storage provider.
type StorageConfig struct {
	Provider string `mapstructure:"provider"` // "local", "s3", "azure", "gcs", "b2"
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`

	// LocalDir is consulted only when Provider is "local".
	LocalDir string `mapstructure:"local_dir"`
	// AzureConnectionString authenticates the "azure" provider.
	AzureConnectionString string `mapstructure:"azure_connection_string"`
	// B2AccountID/B2ApplicationKey authenticate the "b2" provider.
	B2AccountID     string `mapstructure:"b2_account_id"`
	B2ApplicationKey string `mapstructure:"b2_application_key"`
}

// LivestreamConfig parameterises the WebRTC livestream session.
type LivestreamConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SignalAddr    string `mapstructure:"signal_addr"`
	InitialBitrate int   `mapstructure:"initial_bitrate_bps"`
	MinBitrate     int   `mapstructure:"min_bitrate_bps"`
	MaxBitrate     int   `mapstructure:"max_bitrate_bps"`
}

// Default mirrors the teacher's Default(): a baseline every field of Config
// resolves to when no file, env var, or flag overrides it.
func Default() Config {
	return Config{
		FrameRate:      25,
		BreakInterval:  5 * time.Minute,
		CodecName:      "h264",
		OutputDir:      ".",
		FilenamePrefix: "capture",
		DrawTimestamp:  true,
		MarkerPolicy:   "gate_closed_when_exhausted",
		LogLevel:       "info",
		LogFormat:      "text",
		Storage: StorageConfig{
			Provider: "local",
			LocalDir: "segments",
		},
		Livestream: LivestreamConfig{
			Enabled:        false,
			SignalAddr:     ":8443",
			InitialBitrate: 1_500_000,
			MinBitrate:     250_000,
			MaxBitrate:     8_000_000,
		},
	}
}

// Load builds a viper instance layering, in increasing precedence: the
// Default() baseline, a config file (if configPath is non-empty), and
// CAPTURE_-prefixed environment variables — the same layering order the
// teacher's config loader uses.
func Load(configPath string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAPTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("frame_rate", d.FrameRate)
	v.SetDefault("break_interval", d.BreakInterval)
	v.SetDefault("codec", d.CodecName)
	v.SetDefault("codec_options", d.CodecOptions)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("filename_prefix", d.FilenamePrefix)
	v.SetDefault("draw_timestamp", d.DrawTimestamp)
	v.SetDefault("marker_policy", d.MarkerPolicy)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.bucket", d.Storage.Bucket)
	v.SetDefault("storage.prefix", d.Storage.Prefix)
	v.SetDefault("storage.region", d.Storage.Region)
	v.SetDefault("storage.local_dir", d.Storage.LocalDir)
	v.SetDefault("storage.azure_connection_string", d.Storage.AzureConnectionString)
	v.SetDefault("storage.b2_account_id", d.Storage.B2AccountID)
	v.SetDefault("storage.b2_application_key", d.Storage.B2ApplicationKey)
	v.SetDefault("livestream.enabled", d.Livestream.Enabled)
	v.SetDefault("livestream.signal_addr", d.Livestream.SignalAddr)
	v.SetDefault("livestream.initial_bitrate_bps", d.Livestream.InitialBitrate)
	v.SetDefault("livestream.min_bitrate_bps", d.Livestream.MinBitrate)
	v.SetDefault("livestream.max_bitrate_bps", d.Livestream.MaxBitrate)
}
