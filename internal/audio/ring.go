package audio

// frameRing is a fixed-capacity rolling buffer of the most recent frames,
// sized once from the pre-speech window. The oldest frame is evicted on
// overflow, so a confirmed speech onset can recover the frames that
// preceded detection.
type frameRing struct {
	frames [][]float32
	head   int // next write position
	count  int
}

func newFrameRing(capacity int) *frameRing {
	if capacity < 0 {
		capacity = 0
	}
	return &frameRing{frames: make([][]float32, capacity)}
}

// push appends a frame, evicting the oldest when full. A zero-capacity
// ring drops everything.
func (r *frameRing) push(frame []float32) {
	if len(r.frames) == 0 {
		return
	}
	r.frames[r.head] = frame
	r.head = (r.head + 1) % len(r.frames)
	if r.count < len(r.frames) {
		r.count++
	}
}

// appendTo appends the buffered frames to dst, oldest first.
func (r *frameRing) appendTo(dst [][]float32) [][]float32 {
	start := r.head - r.count
	if start < 0 {
		start += len(r.frames)
	}
	for i := 0; i < r.count; i++ {
		dst = append(dst, r.frames[(start+i)%len(r.frames)])
	}
	return dst
}

func (r *frameRing) len() int { return r.count }

func (r *frameRing) reset() {
	for i := range r.frames {
		r.frames[i] = nil
	}
	r.head = 0
	r.count = 0
}
