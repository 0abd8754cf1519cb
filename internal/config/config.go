package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/emmett/aria/internal/audio"
)

// Config represents the application configuration. It is resolved once at
// startup and immutable afterwards; Validate rejects out-of-range values
// instead of clamping them.
type Config struct {
	// Audio capture settings
	Audio struct {
		SampleRate  int  `yaml:"sample_rate"`
		Channels    int  `yaml:"channels"`
		InputDevice *int `yaml:"input_device"`
	} `yaml:"audio"`

	// VAD settings: a named profile plus optional per-field overrides
	VAD struct {
		Profile              string   `yaml:"profile"`
		Aggressiveness       *int     `yaml:"aggressiveness"`
		FrameDurationMs      *int     `yaml:"frame_duration_ms"`
		MinSpeechDurationMs  *int     `yaml:"min_speech_duration_ms"`
		MaxSilenceDurationMs *int     `yaml:"max_silence_duration_ms"`
		PreSpeechBufferMs    *int     `yaml:"pre_speech_buffer_ms"`
		PostSpeechBufferMs   *int     `yaml:"post_speech_buffer_ms"`
		EnergyThreshold      *float64 `yaml:"energy_threshold"`
	} `yaml:"vad"`

	// Recording settings
	Record struct {
		MaxUtteranceSeconds float64 `yaml:"max_utterance_seconds"`
	} `yaml:"record"`

	// STT collaborator settings
	STT struct {
		ModelPath string `yaml:"model_path"`
	} `yaml:"stt"`

	// Hotkey is the push-to-talk toggle, e.g. "ctrl+shift+space".
	Hotkey string `yaml:"hotkey"`

	// Logging settings
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Audio.SampleRate = 16000
	cfg.Audio.Channels = 1

	cfg.VAD.Profile = "normal"

	cfg.Record.MaxUtteranceSeconds = 10

	cfg.Hotkey = "ctrl+shift+space"
	cfg.Logging.Level = "info"

	return cfg
}

// CaptureConfig maps the audio section onto the capture configuration.
func (c *Config) CaptureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate:  c.Audio.SampleRate,
		Channels:    c.Audio.Channels,
		DeviceIndex: c.Audio.InputDevice,
	}
}

// VADConfig resolves the named profile and applies any per-field
// overrides from the file.
func (c *Config) VADConfig(logger zerolog.Logger) audio.VADConfig {
	base := audio.VADProfileConfig(c.VAD.Profile, logger)

	if c.VAD.Aggressiveness != nil {
		base.Aggressiveness = *c.VAD.Aggressiveness
	}
	if c.VAD.FrameDurationMs != nil {
		base.FrameDurationMs = *c.VAD.FrameDurationMs
	}
	if c.VAD.MinSpeechDurationMs != nil {
		base.MinSpeechDurationMs = *c.VAD.MinSpeechDurationMs
	}
	if c.VAD.MaxSilenceDurationMs != nil {
		base.MaxSilenceDurationMs = *c.VAD.MaxSilenceDurationMs
	}
	if c.VAD.PreSpeechBufferMs != nil {
		base.PreSpeechBufferMs = *c.VAD.PreSpeechBufferMs
	}
	if c.VAD.PostSpeechBufferMs != nil {
		base.PostSpeechBufferMs = *c.VAD.PostSpeechBufferMs
	}
	if c.VAD.EnergyThreshold != nil {
		base.EnergyThreshold = *c.VAD.EnergyThreshold
	}
	return base
}

// Validate checks the whole configuration. Invalid values are a startup
// failure; the application must not run with them.
func (c *Config) Validate() error {
	if err := c.CaptureConfig().Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.VADConfig(zerolog.Nop()).Validate(); err != nil {
		return fmt.Errorf("vad: %w", err)
	}
	if c.Record.MaxUtteranceSeconds <= 0 {
		return fmt.Errorf("record: max utterance seconds must be positive")
	}
	return nil
}

// Load loads configuration from a file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback attempts to load configuration from multiple locations.
// Priority: explicit path > ~/.ariarc > /etc/aria/config.yaml.
func LoadWithFallback(explicitPath string) (*Config, error) {
	if explicitPath != "" {
		return Load(explicitPath)
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(homeDir, ".ariarc")
		if _, err := os.Stat(userConfigPath); err == nil {
			cfg, err := Load(userConfigPath)
			if err == nil {
				return cfg, nil
			}
		}
	}

	systemConfigPath := "/etc/aria/config.yaml"
	if _, err := os.Stat(systemConfigPath); err == nil {
		cfg, err := Load(systemConfigPath)
		if err == nil {
			return cfg, nil
		}
	}

	return DefaultConfig(), nil
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
