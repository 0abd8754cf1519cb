package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 {
		t.Errorf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.VAD.Profile != "normal" {
		t.Errorf("default vad profile = %q, want normal", cfg.VAD.Profile)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.SampleRate = 44100
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported sample rate")
	}

	cfg = DefaultConfig()
	bad := 25
	cfg.VAD.FrameDurationMs = &bad
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported frame duration")
	}

	cfg = DefaultConfig()
	cfg.Record.MaxUtteranceSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max utterance")
	}
}

func TestVADConfigOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VAD.Profile = "fast"
	frameMs := 10
	threshold := 0.05
	cfg.VAD.FrameDurationMs = &frameMs
	cfg.VAD.EnergyThreshold = &threshold

	vc := cfg.VADConfig(zerolog.Nop())
	if vc.FrameDurationMs != 10 {
		t.Errorf("frame duration override not applied: %d", vc.FrameDurationMs)
	}
	if vc.EnergyThreshold != 0.05 {
		t.Errorf("energy threshold override not applied: %v", vc.EnergyThreshold)
	}
	// Untouched fields keep the profile values.
	if vc.MinSpeechDurationMs != 200 {
		t.Errorf("fast profile min speech = %d, want 200", vc.MinSpeechDurationMs)
	}
}

func TestVADConfigUnknownProfileFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VAD.Profile = "bogus"

	vc := cfg.VADConfig(zerolog.Nop())
	if vc.MinSpeechDurationMs != 300 || vc.MaxSilenceDurationMs != 1500 {
		t.Errorf("unknown profile did not fall back to normal: %+v", vc)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
audio:
  sample_rate: 8000
vad:
  profile: fast
record:
  max_utterance_seconds: 5
hotkey: ctrl+alt+r
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("sample rate = %d, want 8000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("channels default lost: %d", cfg.Audio.Channels)
	}
	if cfg.VAD.Profile != "fast" {
		t.Errorf("profile = %q, want fast", cfg.VAD.Profile)
	}
	if cfg.Record.MaxUtteranceSeconds != 5 {
		t.Errorf("max utterance = %v, want 5", cfg.Record.MaxUtteranceSeconds)
	}
	if cfg.Hotkey != "ctrl+alt+r" {
		t.Errorf("hotkey = %q", cfg.Hotkey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.STT.ModelPath = "/opt/models/small"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.STT.ModelPath != "/opt/models/small" {
		t.Errorf("model path = %q", loaded.STT.ModelPath)
	}
	if loaded.Audio.SampleRate != cfg.Audio.SampleRate {
		t.Errorf("sample rate = %d, want %d", loaded.Audio.SampleRate, cfg.Audio.SampleRate)
	}
}
