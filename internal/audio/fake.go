package audio

import "sync"

// FakeBackend is a scripted in-memory backend for tests and offline use.
// Streams replay StreamData through the callback; blocking records return
// RecordData. Error fields let tests force individual failure paths.
type FakeBackend struct {
	mu sync.Mutex

	// DeviceList is what Devices returns.
	DeviceList []DeviceDescriptor

	// StreamData is fed through the data callback, in chunks of
	// ChunkSize samples, when a stream starts.
	StreamData []float32
	ChunkSize  int

	// RecordData backs the blocking Record path. Nil yields silence.
	RecordData []float32

	OpenErr   error
	StartErr  error
	RecordErr error

	// StopErr, CloseErr and AbortErr are copied onto opened streams so
	// tests can exercise the tiered release path.
	StopErr  error
	CloseErr error
	AbortErr error

	// RecordGate, when non-nil, blocks Record until the channel is
	// closed. Used to hold a recording in flight.
	RecordGate chan struct{}

	opens   int
	records int
}

// NewFakeBackend returns a fake with a single default input device.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		DeviceList: []DeviceDescriptor{{
			ID:         "fake-0",
			Name:       "fake input",
			Index:      0,
			Channels:   1,
			SampleRate: 16000,
			IsDefault:  true,
		}},
		ChunkSize: 1024,
	}
}

func (f *FakeBackend) Devices() ([]DeviceDescriptor, error) {
	out := make([]DeviceDescriptor, len(f.DeviceList))
	copy(out, f.DeviceList)
	return out, nil
}

func (f *FakeBackend) OpenStream(cfg StreamConfig, cb DataCallback) (Stream, error) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	return &fakeStream{backend: f, cb: cb}, nil
}

func (f *FakeBackend) Record(cfg StreamConfig, frames int) ([]float32, error) {
	f.mu.Lock()
	f.records++
	gate := f.RecordGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.RecordErr != nil {
		return nil, f.RecordErr
	}

	out := make([]float32, frames)
	copy(out, f.RecordData)
	return out, nil
}

func (f *FakeBackend) Close() {}

// Opens reports how many streams were opened.
func (f *FakeBackend) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// Records reports how many blocking captures ran.
func (f *FakeBackend) Records() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

type fakeStream struct {
	backend *FakeBackend
	cb      DataCallback
}

// Start replays the scripted stream data through the callback, mimicking
// the driver-owned callback thread.
func (s *fakeStream) Start() error {
	if s.backend.StartErr != nil {
		return s.backend.StartErr
	}
	go func() {
		data := s.backend.StreamData
		chunk := s.backend.ChunkSize
		if chunk <= 0 {
			chunk = 1024
		}
		for pos := 0; pos < len(data); pos += chunk {
			end := pos + chunk
			if end > len(data) {
				end = len(data)
			}
			out := make([]float32, end-pos)
			copy(out, data[pos:end])
			s.cb(out)
		}
	}()
	return nil
}

func (s *fakeStream) Stop() error  { return s.backend.StopErr }
func (s *fakeStream) Close() error { return s.backend.CloseErr }
func (s *fakeStream) Abort() error { return s.backend.AbortErr }
