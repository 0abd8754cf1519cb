package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// MalgoBackend implements Backend on top of miniaudio via malgo.
type MalgoBackend struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend initializes the malgo context.
func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &MalgoBackend{ctx: ctx}, nil
}

// Devices enumerates capture devices.
func (b *MalgoBackend) Devices() ([]DeviceDescriptor, error) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceDescriptor, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceDescriptor{
			ID:        hex.EncodeToString(info.ID[:]),
			Name:      info.Name(),
			Index:     i,
			Channels:  2, // malgo doesn't expose channel counts on enumeration
			IsDefault: info.IsDefault > 0,
			// miniaudio resamples internally; enumeration doesn't carry
			// a native rate, so report the pipeline default.
			SampleRate: 16000,
		})
	}
	return devices, nil
}

// OpenStream prepares a callback-driven capture stream. Incoming S16LE
// bytes are converted to mono float32 before the callback runs.
func (b *MalgoBackend) OpenStream(cfg StreamConfig, cb DataCallback) (Stream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.SampleRate / 10) // 100ms blocks

	if cfg.Device != nil {
		idBytes, err := hex.DecodeString(cfg.Device.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			cb(bytesToFloat32(data, cfg.Channels))
		},
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	return &malgoStream{device: device}, nil
}

// Record captures exactly frames samples through a temporary stream and
// blocks until the buffer is full.
func (b *MalgoBackend) Record(cfg StreamConfig, frames int) ([]float32, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", frames)
	}

	var (
		mu   sync.Mutex
		buf  = make([]float32, 0, frames)
		done = make(chan struct{})
		once sync.Once
	)

	stream, err := b.OpenStream(cfg, func(samples []float32) {
		mu.Lock()
		if len(buf) < frames {
			buf = append(buf, samples...)
			if len(buf) >= frames {
				once.Do(func() { close(done) })
			}
		}
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	// Wall-clock bound: the expected fill time plus a margin for driver
	// startup latency.
	wait := time.Duration(frames) * time.Second / time.Duration(cfg.SampleRate)
	select {
	case <-done:
	case <-time.After(wait + watchdogGrace):
	}

	if err := stream.Stop(); err != nil {
		return nil, fmt.Errorf("failed to stop device: %w", err)
	}

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

// Close releases the malgo context.
func (b *MalgoBackend) Close() {
	_ = b.ctx.Uninit()
	b.ctx.Free()
}

type malgoStream struct {
	device *malgo.Device
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

func (s *malgoStream) Stop() error {
	if err := s.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

func (s *malgoStream) Close() error {
	s.device.Uninit()
	return nil
}

func (s *malgoStream) Abort() error {
	// miniaudio has no separate abort; uninit tears the device down
	// without a graceful stop.
	s.device.Uninit()
	return nil
}

// bytesToFloat32 converts interleaved S16LE PCM to mono float32 in [-1, 1],
// averaging channels when the stream is not mono.
func bytesToFloat32(data []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	sampleCount := len(data) / 2
	frameCount := sampleCount / channels
	out := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			s := int16(binary.LittleEndian.Uint16(data[(i*channels+c)*2:]))
			sum += float32(s) / 32768.0
		}
		out[i] = sum / float32(channels)
	}
	return out
}
