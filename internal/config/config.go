package config

import "fmt"

const (
	// DefaultVoice is used when neither a task nor the operator picks one.
	DefaultVoice = "en-US-AriaNeural"

	// DefaultOutputDir is where batch audio lands unless overridden.
	DefaultOutputDir = "output_audio"

	DefaultListenAddr = "127.0.0.1:8080"
	DefaultLogLevel   = "info"

	// MinRate/MaxRate bound the percent rate adjustment.
	MinRate = -50
	MaxRate = 50

	// MinPitch/MaxPitch bound the Hz pitch adjustment.
	MinPitch = -20
	MaxPitch = 20
)

// Config captures runtime configuration sourced from environment variables
// (and .env files loaded by the entrypoint).
type Config struct {
	OutputDir  string `env:"EDGESAY_OUTPUT_DIR"`
	Voice      string `env:"EDGESAY_VOICE"`
	Rate       int    `env:"EDGESAY_RATE"`
	Pitch      int    `env:"EDGESAY_PITCH"`
	ListenAddr string `env:"EDGESAY_LISTEN_ADDR"`
	LogLevel   string `env:"EDGESAY_LOG_LEVEL"`

	// UseStubSynthesizer swaps the Edge client for the deterministic stub.
	UseStubSynthesizer bool `env:"EDGESAY_USE_STUB"`

	// Audio cache (disabled when CacheMaxSizeMB is 0 or CacheDir is empty).
	CacheDir       string `env:"EDGESAY_CACHE_DIR"`
	CacheMaxSizeMB int    `env:"EDGESAY_CACHE_MAX_SIZE_MB"`
}

// Validate applies defaults and raises an error when a value is out of range.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.Rate < MinRate || c.Rate > MaxRate {
		return fmt.Errorf("config: rate must be between %d and %d, got %d", MinRate, MaxRate, c.Rate)
	}
	if c.Pitch < MinPitch || c.Pitch > MaxPitch {
		return fmt.Errorf("config: pitch must be between %d and %d, got %d", MinPitch, MaxPitch, c.Pitch)
	}
	if c.CacheMaxSizeMB < 0 {
		return fmt.Errorf("config: cache_max_size_mb must not be negative, got %d", c.CacheMaxSizeMB)
	}
	return nil
}
