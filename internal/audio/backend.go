package audio

// DataCallback receives mono float32 samples from a driver-owned thread.
// Implementations must not retain the slice past the call.
type DataCallback func(samples []float32)

// StreamConfig configures a single capture session on a backend.
type StreamConfig struct {
	SampleRate int
	Channels   int

	// Device pins the session to a specific device. Nil means the
	// platform default input.
	Device *DeviceDescriptor
}

// Backend abstracts the platform capture layer so the lifecycle manager can
// be driven by the real driver (malgo), the PulseAudio fallback, or a fake
// in tests.
type Backend interface {
	// Devices enumerates capture-capable devices.
	Devices() ([]DeviceDescriptor, error)

	// OpenStream prepares a callback-driven input stream. The stream is
	// not started; callers own its lifecycle through the Stream handle.
	OpenStream(cfg StreamConfig, cb DataCallback) (Stream, error)

	// Record blocks until exactly frames samples have been captured and
	// returns them. No callback, no timer.
	Record(cfg StreamConfig, frames int) ([]float32, error)

	// Close releases the backend context.
	Close()
}

// Stream is an open capture stream handle. Release order on cleanup is
// Stop+Close, then Abort, then dropping the handle.
type Stream interface {
	// Start begins delivering samples to the data callback.
	Start() error

	// Stop halts delivery gracefully.
	Stop() error

	// Close releases the stream after a Stop.
	Close() error

	// Abort tears the stream down without a graceful stop.
	Abort() error
}
