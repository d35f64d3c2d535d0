package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the shared configuration of the audio-modifier and transcriber
// commands. Every field has a usable default, so the file is optional.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	FFmpeg  FFmpegConfig  `toml:"ffmpeg"`
	Models  ModelsConfig  `toml:"models"`
	OpenAI  OpenAIConfig  `toml:"openai"`
	History HistoryConfig `toml:"history"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// FFmpegConfig locates the ffmpeg/ffprobe binaries.
type FFmpegConfig struct {
	Path           string `toml:"path"`
	ProbePath      string `toml:"probe_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ModelsConfig controls model resolution for the transcriber.
type ModelsConfig struct {
	CacheDir     string `toml:"cache_dir"`
	AutoDownload bool   `toml:"auto_download"`
	Backend      string `toml:"backend"`
	Language     string `toml:"language"`
	Threads      int    `toml:"threads"`
}

// OpenAIConfig configures the remote transcription backend.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HistoryConfig points at the optional SQLite history database.
type HistoryConfig struct {
	DBPath string `toml:"db_path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		FFmpeg: FFmpegConfig{
			Path:           "ffmpeg",
			ProbePath:      "ffprobe",
			TimeoutSeconds: 300,
		},
		Models: ModelsConfig{
			CacheDir:     defaultCacheDir(),
			AutoDownload: true,
			Backend:      "whisper",
			Language:     "auto",
			Threads:      0,
		},
		OpenAI: OpenAIConfig{
			Model:          "whisper-1",
			TimeoutSeconds: 120,
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "models")
	}
	return filepath.Join(dir, "audiokit", "models")
}

// Load reads a TOML file on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv fills secrets that are missing from the file from the environment.
func (c *Config) ApplyEnv() {
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.FFmpeg.Validate(); err != nil {
		return fmt.Errorf("ffmpeg config: %w", err)
	}
	if err := c.Models.Validate(); err != nil {
		return fmt.Errorf("models config: %w", err)
	}
	if err := c.OpenAI.Validate(); err != nil {
		return fmt.Errorf("openai config: %w", err)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	if l.Format != "json" && l.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got '%s'", l.Format)
	}

	return nil
}

// Validate validates ffmpeg configuration
func (f *FFmpegConfig) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if f.ProbePath == "" {
		return fmt.Errorf("probe_path cannot be empty")
	}
	if f.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", f.TimeoutSeconds)
	}
	return nil
}

// Validate validates model configuration
func (m *ModelsConfig) Validate() error {
	if m.CacheDir == "" {
		return fmt.Errorf("cache_dir cannot be empty")
	}

	validBackends := map[string]bool{"whisper": true, "vosk": true, "openai": true}
	if !validBackends[m.Backend] {
		return fmt.Errorf("backend must be one of [whisper, vosk, openai], got '%s'", m.Backend)
	}

	if m.Threads < 0 {
		return fmt.Errorf("threads cannot be negative, got %d", m.Threads)
	}
	return nil
}

// Validate validates OpenAI configuration. The API key is checked when the
// backend is actually constructed, since most runs never use it.
func (o *OpenAIConfig) Validate() error {
	if o.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if o.TimeoutSeconds < 1 {
		return fmt.Errorf("timeout_seconds must be at least 1, got %d", o.TimeoutSeconds)
	}
	return nil
}

// Timeout returns the ffmpeg timeout as a time.Duration
func (f *FFmpegConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Timeout returns the OpenAI request timeout as a time.Duration
func (o *OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}
