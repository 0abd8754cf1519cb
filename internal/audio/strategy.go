package audio

import (
	"fmt"
	"sync"
	"time"
)

// capture dispatches to the strategy's capture routine. A strategy fails
// when its routine returns an error or produced no frames.
func (m *Manager) capture(strategy Strategy, duration time.Duration) (*CapturedAudio, error) {
	switch strategy {
	case StrategyStreamingFixed:
		return m.captureStreamingFixed(duration)
	case StrategyBlockingRecord:
		return m.captureBlocking(duration)
	case StrategyPlatformFallback:
		return m.capturePlatformFallback(duration)
	case StrategyStreamingVAD:
		return m.captureStreamingVAD(duration)
	default:
		return nil, ErrUnsupportedStrategy
	}
}

// captureStreamingFixed opens a callback-driven stream and lets the
// driver-owned callback thread fill the buffer while the calling thread
// sleeps for the requested duration. A safety timer fires at
// duration+grace and only logs; the capture is already wall-clock bounded
// by the sleep.
func (m *Manager) captureStreamingFixed(duration time.Duration) (*CapturedAudio, error) {
	framesNeeded := int(duration.Seconds() * float64(m.cfg.SampleRate))

	var mu sync.Mutex
	var buf []float32
	stream, err := m.backend.OpenStream(m.streamConfig(), func(samples []float32) {
		mu.Lock()
		if len(buf) < framesNeeded {
			buf = append(buf, samples...)
		}
		mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	m.setActive(stream)

	watchdog := time.AfterFunc(duration+watchdogGrace, func() {
		m.log.Warn().Dur("duration", duration).Msg("recording watchdog fired")
	})
	defer watchdog.Stop()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}
	time.Sleep(duration)
	m.Release(stream)

	mu.Lock()
	samples := buf
	mu.Unlock()

	if len(samples) == 0 {
		return nil, ErrNoFrames
	}
	if len(samples) > framesNeeded {
		samples = samples[:framesNeeded]
	}
	return m.captured(samples, StrategyStreamingFixed), nil
}

// captureBlocking allocates the exact frame count up front and waits for
// the backend to fill it. More robust than streaming but cannot
// early-terminate on speech end.
func (m *Manager) captureBlocking(duration time.Duration) (*CapturedAudio, error) {
	frames := int(duration.Seconds() * float64(m.cfg.SampleRate))
	samples, err := m.backend.Record(m.streamConfig(), frames)
	if err != nil {
		return nil, fmt.Errorf("blocking capture: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrNoFrames
	}
	return m.captured(samples, StrategyBlockingRecord), nil
}

// capturePlatformFallback records through the platform-native path
// (PulseAudio on Linux), bypassing the default backend.
func (m *Manager) capturePlatformFallback(duration time.Duration) (*CapturedAudio, error) {
	frames := int(duration.Seconds() * float64(m.cfg.SampleRate))
	samples, err := pulseRecord(m.streamConfig(), frames)
	if err != nil {
		return nil, fmt.Errorf("platform capture: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrNoFrames
	}
	return m.captured(samples, StrategyPlatformFallback), nil
}

// captureStreamingVAD streams frames through the attached detector and
// stops as soon as the utterance ends, with duration as the wall-clock
// bound. Requires a VAD set via SetVAD.
func (m *Manager) captureStreamingVAD(duration time.Duration) (*CapturedAudio, error) {
	m.mu.Lock()
	vad := m.vad
	onFrame := m.onFrame
	m.mu.Unlock()
	if vad == nil {
		return nil, fmt.Errorf("%w: no vad engine attached", ErrUnsupportedStrategy)
	}

	frames := make(chan []float32, 64)
	framer := newFramer(vad.FrameSize(), func(frame []float32) {
		select {
		case frames <- frame:
		default:
			// Detector fell behind; dropping keeps the driver callback
			// from blocking.
			m.log.Warn().Msg("vad frame dropped, detector falling behind")
		}
	})

	stream, err := m.backend.OpenStream(m.streamConfig(), framer.push)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	m.setActive(stream)

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	segment, _ := vad.StreamProcess(frames, duration.Seconds(), onFrame)
	m.Release(stream)

	if len(segment) == 0 {
		return nil, ErrNoFrames
	}
	return m.captured(segment, StrategyStreamingVAD), nil
}

// captured assembles the result record with its quality metrics.
func (m *Manager) captured(samples []float32, strategy Strategy) *CapturedAudio {
	q := Analyze(samples)
	audio := &CapturedAudio{
		Samples:         samples,
		SampleRate:      m.cfg.SampleRate,
		Duration:        float64(len(samples)) / float64(m.cfg.SampleRate),
		RMS:             q.RMS,
		ClippingPercent: q.ClippingPercent,
		StrategyUsed:    strategy,
	}
	m.log.Info().
		Float64("duration_s", audio.Duration).
		Float64("rms", audio.RMS).
		Float64("clipping_pct", audio.ClippingPercent).
		Stringer("strategy", strategy).
		Msg("audio captured")
	return audio
}

// framer re-slices arbitrary-size callback chunks into fixed-size frames.
type framer struct {
	size    int
	pending []float32
	emit    func([]float32)
}

func newFramer(size int, emit func([]float32)) *framer {
	return &framer{size: size, emit: emit}
}

func (f *framer) push(samples []float32) {
	f.pending = append(f.pending, samples...)
	for len(f.pending) >= f.size {
		frame := make([]float32, f.size)
		copy(frame, f.pending[:f.size])
		f.pending = f.pending[f.size:]
		f.emit(frame)
	}
}
