package audio

import (
	"errors"
	"time"
)

// Strategy identifies a recording strategy in the capture cascade.
type Strategy int

const (
	// StrategyStreamingFixed is the primary strategy: a callback-driven
	// input stream bounded by a fixed wall-clock duration.
	StrategyStreamingFixed Strategy = iota

	// StrategyBlockingRecord is the fallback strategy: a single blocking
	// call that allocates the exact frame count up front and waits.
	StrategyBlockingRecord

	// StrategyPlatformFallback is a platform-specific capture path
	// (PulseAudio on Linux). Not part of the default cascade.
	StrategyPlatformFallback

	// StrategyStreamingVAD streams frames through the voice activity
	// detector and terminates early on end of speech. Requires a VAD
	// engine attached to the manager; not part of the default cascade.
	StrategyStreamingVAD
)

// String returns the strategy name used in logs and stats.
func (s Strategy) String() string {
	switch s {
	case StrategyStreamingFixed:
		return "streaming_fixed"
	case StrategyBlockingRecord:
		return "blocking_record"
	case StrategyPlatformFallback:
		return "platform_fallback"
	case StrategyStreamingVAD:
		return "streaming_vad"
	default:
		return "unknown"
	}
}

// strategies lists every strategy in cascade order.
var strategies = []Strategy{
	StrategyStreamingFixed,
	StrategyBlockingRecord,
	StrategyPlatformFallback,
	StrategyStreamingVAD,
}

// DeviceDescriptor describes a capture device. It is created when the
// manager is constructed (or on an explicit probe) and read-only after that.
type DeviceDescriptor struct {
	// ID is an opaque platform-specific identifier.
	ID string

	// Name is the human-readable device name.
	Name string

	// Index is the device's position in the enumeration order.
	Index int

	// Channels is the number of input channels the device reports.
	Channels int

	// SampleRate is the device's native sample rate in Hz.
	SampleRate int

	// IsDefault marks the platform default input device.
	IsDefault bool
}

// CapturedAudio is the result of a successful Record call. Ownership
// transfers to the caller; the manager never mutates it afterwards.
type CapturedAudio struct {
	// Samples is mono float32 PCM in [-1, 1].
	Samples []float32

	// SampleRate is the capture sample rate in Hz.
	SampleRate int

	// Duration is the audio length in seconds.
	Duration float64

	// RMS is the root-mean-square amplitude of the buffer.
	RMS float64

	// ClippingPercent is the percentage of samples at or beyond the
	// amplitude ceiling.
	ClippingPercent float64

	// StrategyUsed is the strategy that produced this audio.
	StrategyUsed Strategy
}

// StrategyStats tracks success and failure counts for one strategy.
// Counts are mutated only while holding the manager's lock.
type StrategyStats struct {
	Success int
	Failure int
}

// SuccessRate returns successes over total attempts, or 0 with no attempts.
func (s StrategyStats) SuccessRate() float64 {
	total := s.Success + s.Failure
	if total == 0 {
		return 0
	}
	return float64(s.Success) / float64(total)
}

var (
	// ErrNoInputDevice indicates no capture-capable device was found.
	ErrNoInputDevice = errors.New("no audio input device found")

	// ErrNoFrames indicates a capture attempt produced an empty buffer.
	ErrNoFrames = errors.New("no audio frames captured")

	// ErrUnsupportedStrategy indicates a strategy that cannot run on this
	// platform or without additional wiring (e.g. streaming VAD with no
	// VAD engine attached).
	ErrUnsupportedStrategy = errors.New("unsupported recording strategy")
)

// supportedSampleRates are the rates accepted by the capture and VAD layers.
var supportedSampleRates = []int{8000, 16000, 32000, 48000}

func validSampleRate(rate int) bool {
	for _, r := range supportedSampleRates {
		if rate == r {
			return true
		}
	}
	return false
}

// CaptureConfig holds the capture-side configuration, resolved once at
// manager construction.
type CaptureConfig struct {
	// SampleRate in Hz. One of 8000, 16000, 32000, 48000.
	SampleRate int

	// Channels is the capture channel count. The pipeline downmixes to
	// mono, so this is almost always 1.
	Channels int

	// DeviceIndex optionally pins capture to a specific device from the
	// enumeration. Nil selects the platform default input.
	DeviceIndex *int
}

// DefaultCaptureConfig returns the capture defaults (16 kHz mono).
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate: 16000,
		Channels:   1,
	}
}

// Validate rejects out-of-range values. Invalid configuration is a
// construction-time failure, never a silent clamp.
func (c CaptureConfig) Validate() error {
	if !validSampleRate(c.SampleRate) {
		return errors.New("sample rate must be one of 8000, 16000, 32000, 48000")
	}
	if c.Channels < 1 {
		return errors.New("channel count must be at least 1")
	}
	return nil
}

// watchdogGrace is added to the requested duration before the diagnostic
// safety timer fires. The timer only warns; the capture itself is already
// wall-clock bounded.
const watchdogGrace = 2 * time.Second
