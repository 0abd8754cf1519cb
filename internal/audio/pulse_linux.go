//go:build linux

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

// pulseRecord is the Linux platform-fallback capture path: a PulseAudio
// record stream that fills an exact frame count and stops. It is used only
// by StrategyPlatformFallback, bypassing the malgo backend entirely.
func pulseRecord(cfg StreamConfig, frames int) ([]float32, error) {
	client, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	defer client.Close()

	var (
		mu   sync.Mutex
		buf  = make([]float32, 0, frames)
		done = make(chan struct{})
		once sync.Once
	)

	writer := pulse.Float32Writer(func(samples []float32) (int, error) {
		mu.Lock()
		if len(buf) < frames {
			buf = append(buf, samples...)
			if len(buf) >= frames {
				once.Do(func() { close(done) })
			}
		}
		mu.Unlock()
		return len(samples), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(cfg.SampleRate),
		pulse.RecordLatency(0.05),
	}
	if cfg.Device != nil {
		source, err := client.SourceByID(cfg.Device.ID)
		if err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	stream, err := client.NewRecord(writer, opts...)
	if err != nil {
		return nil, fmt.Errorf("pulse record: %w", err)
	}

	stream.Start()
	wait := time.Duration(frames) * time.Second / time.Duration(cfg.SampleRate)
	select {
	case <-done:
	case <-time.After(wait + watchdogGrace):
	}
	stream.Stop()
	stream.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(buf) == 0 {
		return nil, ErrNoFrames
	}
	if len(buf) > frames {
		buf = buf[:frames]
	}
	return buf, nil
}
