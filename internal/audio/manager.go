package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// failureDemotionLimit is the recorded-failure count at which the default
// strategy is permanently demoted to the fallback.
const failureDemotionLimit = 3

// probeDuration is the length of the diagnostic capture in Probe.
const probeDuration = time.Second

// Manager is the process-wide capture coordinator. It owns at most one
// active stream handle, serializes Record calls behind a lock plus an
// explicit in-progress guard, and runs the recording-strategy cascade with
// sticky auto-demotion. Construct it once and share it by reference.
type Manager struct {
	cfg     CaptureConfig
	backend Backend
	log     zerolog.Logger
	device  *DeviceDescriptor

	mu        sync.Mutex
	recording bool
	active    Stream
	current   Strategy
	stats     map[Strategy]*StrategyStats
	vad       *VAD
	onFrame   func(frame []float32, isSpeech, ended bool)
}

// NewManager resolves the capture device and prepares the cascade. It fails
// rather than operate without a usable input device.
func NewManager(cfg CaptureConfig, backend Backend, logger zerolog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capture config: %w", err)
	}

	device, err := ResolveDevice(backend, cfg.DeviceIndex)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:     cfg,
		backend: backend,
		log:     logger.With().Str("component", "audio_manager").Logger(),
		device:  device,
		current: StrategyStreamingFixed,
		stats:   make(map[Strategy]*StrategyStats, len(strategies)),
	}
	for _, s := range strategies {
		m.stats[s] = &StrategyStats{}
	}

	m.log.Info().
		Str("device", device.Name).
		Int("sample_rate", cfg.SampleRate).
		Bool("default_device", device.IsDefault).
		Msg("audio manager ready")
	return m, nil
}

// Device returns the resolved capture device.
func (m *Manager) Device() DeviceDescriptor { return *m.device }

// SetVAD attaches a detector so StrategyStreamingVAD can early-terminate
// captures on end of speech.
func (m *Manager) SetVAD(v *VAD) {
	m.mu.Lock()
	m.vad = v
	m.mu.Unlock()
}

// SetFrameObserver installs a per-frame callback for detector-driven
// captures, e.g. a console level meter. It runs on the detector
// goroutine and must be fast.
func (m *Manager) SetFrameObserver(fn func(frame []float32, isSpeech, ended bool)) {
	m.mu.Lock()
	m.onFrame = fn
	m.mu.Unlock()
}

// CurrentStrategy returns the cascade's current default strategy.
func (m *Manager) CurrentStrategy() Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Record captures audio for the given duration with the current default
// strategy. A nil result means no audio was captured (or another recording
// is in flight); callers should prompt the user to retry, never crash.
func (m *Manager) Record(duration time.Duration) *CapturedAudio {
	m.mu.Lock()
	strategy := m.current
	m.mu.Unlock()
	return m.RecordStrategy(duration, strategy)
}

// RecordStrategy captures audio with an explicit strategy, falling back to
// the blocking strategy on failure. A second concurrent caller fails fast
// with nil instead of blocking.
func (m *Manager) RecordStrategy(duration time.Duration, strategy Strategy) *CapturedAudio {
	m.mu.Lock()
	if m.recording {
		m.mu.Unlock()
		m.log.Warn().Msg("recording already in progress")
		return nil
	}
	m.recording = true
	m.mu.Unlock()

	// The guard and the stream handle are released on every exit path.
	defer func() {
		m.Release(nil)
		m.mu.Lock()
		m.recording = false
		m.mu.Unlock()
	}()

	m.log.Info().Stringer("strategy", strategy).Dur("duration", duration).Msg("recording")

	audio, err := m.capture(strategy, duration)
	if err == nil {
		m.recordOutcome(strategy, true)
		return audio
	}
	m.recordOutcome(strategy, false)
	m.log.Warn().Err(err).Stringer("strategy", strategy).Msg("capture failed")

	// Sticky auto-demotion: once the attempted strategy has accumulated
	// enough failures, the fallback becomes the default for the rest of
	// the process lifetime. No automatic re-promotion.
	m.maybeDemote(strategy)

	if strategy == StrategyBlockingRecord {
		return nil
	}

	m.log.Warn().Stringer("fallback", StrategyBlockingRecord).Msg("retrying with fallback strategy")
	audio, err = m.capture(StrategyBlockingRecord, duration)
	m.recordOutcome(StrategyBlockingRecord, err == nil)
	if err != nil {
		m.log.Error().Err(err).Msg("fallback capture failed")
		return nil
	}
	return audio
}

// recordOutcome updates the per-strategy counters under the manager's lock.
func (m *Manager) recordOutcome(strategy Strategy, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.stats[strategy].Success++
	} else {
		m.stats[strategy].Failure++
	}
}

func (m *Manager) maybeDemote(strategy Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strategy == StrategyBlockingRecord || m.current == StrategyBlockingRecord {
		return
	}
	if m.stats[strategy].Failure >= failureDemotionLimit {
		m.log.Warn().
			Stringer("from", m.current).
			Stringer("to", StrategyBlockingRecord).
			Msg("strategy demoted after repeated failures")
		m.current = StrategyBlockingRecord
	}
}

// Release cleans up a stream handle with tiered, swallow-and-continue
// semantics: graceful stop-then-close, then abort, then dropping the
// reference. It never panics, is idempotent, and clears the active handle
// regardless of which tier succeeded. A nil argument releases the active
// stream (a no-op returning true when there is none). The return value is
// false only when every cleanup tier failed and the handle was dropped.
func (m *Manager) Release(stream Stream) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("stream release panicked")
			ok = false
		}
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
	}()

	m.mu.Lock()
	if stream == nil {
		stream = m.active
	}
	m.mu.Unlock()

	if stream == nil {
		return true
	}

	// Tier 1: graceful stop then close.
	if err := stream.Stop(); err == nil {
		if err := stream.Close(); err == nil {
			m.log.Debug().Msg("stream closed")
			return true
		} else {
			m.log.Warn().Err(err).Msg("stream close failed")
		}
	} else {
		m.log.Warn().Err(err).Msg("stream stop failed")
	}

	// Tier 2: forced abort.
	if err := stream.Abort(); err == nil {
		m.log.Debug().Msg("stream aborted")
		return true
	} else {
		m.log.Warn().Err(err).Msg("stream abort failed")
	}

	// Tier 3: drop the reference and move on.
	m.log.Warn().Msg("dropping stream reference after failed cleanup")
	return false
}

// Probe runs a short diagnostic capture through the blocking strategy,
// independent of the cascade's current default.
func (m *Manager) Probe() QualityReport {
	frames := int(probeDuration.Seconds() * float64(m.cfg.SampleRate))
	samples, err := m.backend.Record(m.streamConfig(), frames)
	if err != nil {
		m.log.Error().Err(err).Msg("microphone probe failed")
		return QualityReport{Err: err}
	}

	q := Analyze(samples)
	report := QualityReport{Quality: q, Level: q.Level()}
	m.log.Info().
		Float64("rms", q.RMS).
		Float64("clipping_pct", q.ClippingPercent).
		Stringer("level", report.Level).
		Msg("microphone probe")
	return report
}

// StrategySnapshot is a point-in-time view of one strategy's counters.
type StrategySnapshot struct {
	Strategy    Strategy
	Success     int
	Failure     int
	SuccessRate float64
}

// ManagerStats is a snapshot of the cascade state.
type ManagerStats struct {
	Current    Strategy
	Strategies []StrategySnapshot
}

// Stats returns the per-strategy counters and the current default strategy.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := ManagerStats{Current: m.current}
	for _, s := range strategies {
		st := m.stats[s]
		out.Strategies = append(out.Strategies, StrategySnapshot{
			Strategy:    s,
			Success:     st.Success,
			Failure:     st.Failure,
			SuccessRate: st.SuccessRate(),
		})
	}
	return out
}

// Close releases any active stream and the backend context.
func (m *Manager) Close() {
	m.Release(nil)
	m.backend.Close()
	m.log.Info().Msg("audio manager closed")
}

func (m *Manager) streamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: m.cfg.SampleRate,
		Channels:   m.cfg.Channels,
		Device:     m.device,
	}
}

func (m *Manager) setActive(s Stream) {
	m.mu.Lock()
	m.active = s
	m.mu.Unlock()
}
