package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "VOICEDECK_CONFIG"

// Config holds all application configuration.
type Config struct {
	// Paths
	DataDir    string `yaml:"data_dir"`
	ModelsDir  string `yaml:"models_dir"`
	OutputsDir string `yaml:"outputs_dir"`
	VoicesDir  string `yaml:"voices_dir"`
	HistoryDir string `yaml:"history_dir"`

	// Generation settings
	OutputFormat   string `yaml:"output_format"`
	SampleRate     int    `yaml:"sample_rate"`
	MaxTextLength  int    `yaml:"max_text_length"`
	FilenameMaxLen int    `yaml:"filename_max_len"`
	AutoPlay       bool   `yaml:"auto_play"`

	// Synthesis settings
	SynthCommand string        `yaml:"synth_command"`
	SynthTimeout time.Duration `yaml:"synth_timeout"`

	// Asset fetch settings
	HFEndpoint      string        `yaml:"hf_endpoint"`
	HFToken         string        `yaml:"-"`
	FetchMaxRetries int           `yaml:"fetch_max_retries"`
	FetchBackoff    time.Duration `yaml:"fetch_backoff"`

	// External tools
	FFmpegPath    string `yaml:"ffmpeg_path"`
	PlayerCommand string `yaml:"player_command"`
	WhisperBin    string `yaml:"whisper_bin"`
	WhisperModel  string `yaml:"whisper_model"`

	// Logging settings
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		DataDir: ".",

		OutputFormat:   "wav",
		SampleRate:     24000,
		MaxTextLength:  10000,
		FilenameMaxLen: 20,
		AutoPlay:       true,

		SynthCommand: "python3 -m mlx_audio.tts.generate",
		SynthTimeout: 10 * time.Minute,

		HFEndpoint:      "https://huggingface.co",
		FetchMaxRetries: 3,
		FetchBackoff:    2 * time.Second,

		FFmpegPath: "ffmpeg",

		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads configuration from the optional YAML file named by
// VOICEDECK_CONFIG, then from environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile reads configuration from path (skipped when empty), then applies
// environment overrides and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.ResolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	// Paths
	c.DataDir = getEnvString("DATA_DIR", c.DataDir)
	c.ModelsDir = getEnvString("MODELS_DIR", c.ModelsDir)
	c.OutputsDir = getEnvString("OUTPUTS_DIR", c.OutputsDir)
	c.VoicesDir = getEnvString("VOICES_DIR", c.VoicesDir)
	c.HistoryDir = getEnvString("HISTORY_DIR", c.HistoryDir)

	// Generation settings
	c.OutputFormat = getEnvString("OUTPUT_FORMAT", c.OutputFormat)
	c.SampleRate = getEnvInt("SAMPLE_RATE", c.SampleRate)
	c.MaxTextLength = getEnvInt("MAX_TEXT_LENGTH", c.MaxTextLength)
	c.FilenameMaxLen = getEnvInt("FILENAME_MAX_LEN", c.FilenameMaxLen)
	c.AutoPlay = getEnvBool("AUTO_PLAY", c.AutoPlay)

	// Synthesis settings
	c.SynthCommand = getEnvString("SYNTH_COMMAND", c.SynthCommand)
	c.SynthTimeout = getEnvDuration("SYNTH_TIMEOUT", c.SynthTimeout)

	// Asset fetch settings
	c.HFEndpoint = getEnvString("HF_ENDPOINT", c.HFEndpoint)
	c.HFToken = getEnvString("HF_TOKEN", c.HFToken)
	c.FetchMaxRetries = getEnvInt("FETCH_MAX_RETRIES", c.FetchMaxRetries)
	c.FetchBackoff = getEnvDuration("FETCH_BACKOFF", c.FetchBackoff)

	// External tools
	c.FFmpegPath = getEnvString("FFMPEG_PATH", c.FFmpegPath)
	c.PlayerCommand = getEnvString("PLAYER_COMMAND", c.PlayerCommand)
	c.WhisperBin = getEnvString("WHISPER_BIN", c.WhisperBin)
	c.WhisperModel = getEnvString("WHISPER_MODEL", c.WhisperModel)

	// Logging settings
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvString("LOG_FORMAT", c.LogFormat)
	c.LogFile = getEnvString("LOG_FILE", c.LogFile)
}

// ResolvePaths fills unset directories relative to DataDir.
func (c *Config) ResolvePaths() {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.ModelsDir == "" {
		c.ModelsDir = filepath.Join(c.DataDir, "models")
	}
	if c.OutputsDir == "" {
		c.OutputsDir = filepath.Join(c.DataDir, "outputs")
	}
	if c.VoicesDir == "" {
		c.VoicesDir = filepath.Join(c.DataDir, "voices")
	}
	if c.HistoryDir == "" {
		c.HistoryDir = filepath.Join(c.DataDir, "history")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "voicedeck.log")
	}
}

// WithDataDir moves every derived path under dir, discarding earlier
// per-directory overrides.
func (c *Config) WithDataDir(dir string) {
	c.DataDir = dir
	c.ModelsDir, c.OutputsDir, c.VoicesDir, c.HistoryDir, c.LogFile = "", "", "", "", ""
	c.ResolvePaths()
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	validFormats := map[string]bool{"wav": true, "mp3": true, "m4a": true, "flac": true, "aiff": true}
	if !validFormats[c.OutputFormat] {
		return errors.New("OUTPUT_FORMAT must be one of: wav, mp3, m4a, flac, aiff")
	}

	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return errors.New("SAMPLE_RATE must be between 8000 and 192000")
	}

	if c.MaxTextLength < 1 {
		return errors.New("MAX_TEXT_LENGTH must be at least 1")
	}

	if c.FilenameMaxLen < 1 {
		return errors.New("FILENAME_MAX_LEN must be at least 1")
	}

	if c.SynthCommand == "" {
		return errors.New("SYNTH_COMMAND must not be empty")
	}

	if c.SynthTimeout <= 0 {
		return errors.New("SYNTH_TIMEOUT must be positive")
	}

	if c.FetchMaxRetries < 1 {
		return errors.New("FETCH_MAX_RETRIES must be at least 1")
	}

	if c.FetchBackoff < 0 {
		return errors.New("FETCH_BACKOFF must be non-negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return errors.New("LOG_FORMAT must be one of: text, json")
	}

	return nil
}

// TranscriptionEnabled returns true if a whisper binary and model are configured.
func (c *Config) TranscriptionEnabled() bool {
	return c.WhisperBin != "" && c.WhisperModel != ""
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
