package audio

import (
	"testing"

	"github.com/rs/zerolog"
)

// testVADConfig keeps the windows small so tests stay fast: 30ms frames,
// 3 frames to confirm speech, 5 frames of silence to end it, 2 frames of
// pre-roll and 2 frames of trailing silence.
func testVADConfig() VADConfig {
	return VADConfig{
		Aggressiveness:       1,
		FrameDurationMs:      30,
		MinSpeechDurationMs:  90,
		MaxSilenceDurationMs: 150,
		PreSpeechBufferMs:    60,
		PostSpeechBufferMs:   60,
		EnergyThreshold:      0.01,
	}
}

func alwaysSpeech() Classifier {
	return ClassifierFunc(func([]float32, int) (bool, error) { return true, nil })
}

// tone returns n samples at a constant amplitude.
func tone(n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp
	}
	return out
}

func TestVADFrameSize(t *testing.T) {
	for _, rate := range []int{8000, 16000, 32000, 48000} {
		for _, ms := range []int{10, 20, 30} {
			cfg := testVADConfig()
			cfg.FrameDurationMs = ms
			v, err := NewVAD(rate, cfg, alwaysSpeech(), zerolog.Nop())
			if err != nil {
				t.Fatalf("NewVAD(%d, %dms): %v", rate, ms, err)
			}
			want := rate * ms / 1000
			if v.FrameSize() != want {
				t.Errorf("FrameSize at %dHz/%dms = %d, want %d", rate, ms, v.FrameSize(), want)
			}
		}
	}
}

func TestVADRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*VADConfig)
	}{
		{"aggressiveness", func(c *VADConfig) { c.Aggressiveness = 4 }},
		{"frame duration", func(c *VADConfig) { c.FrameDurationMs = 25 }},
		{"min speech", func(c *VADConfig) { c.MinSpeechDurationMs = 0 }},
		{"max silence", func(c *VADConfig) { c.MaxSilenceDurationMs = -1 }},
		{"pre buffer", func(c *VADConfig) { c.PreSpeechBufferMs = -1 }},
		{"energy threshold", func(c *VADConfig) { c.EnergyThreshold = -0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testVADConfig()
			tc.mutate(&cfg)
			if _, err := NewVAD(16000, cfg, alwaysSpeech(), zerolog.Nop()); err == nil {
				t.Error("expected config validation error")
			}
		})
	}

	if _, err := NewVAD(44100, testVADConfig(), alwaysSpeech(), zerolog.Nop()); err == nil {
		t.Error("expected sample rate error for 44100")
	}
}

func TestVADPureSilence(t *testing.T) {
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	segment, duration := v.ProcessAudio(make([]float32, 16000), 0)
	if segment != nil {
		t.Errorf("silence produced a %d-sample segment", len(segment))
	}
	if duration != 0 {
		t.Errorf("silence produced duration %v", duration)
	}
}

func TestVADSegmentExtraction(t *testing.T) {
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frameSize := v.FrameSize()

	// 4 silence frames, 6 speech frames, then silence until the detector
	// terminates the utterance.
	var frames [][]float32
	for i := 0; i < 4; i++ {
		frames = append(frames, tone(frameSize, 0))
	}
	for i := 0; i < 6; i++ {
		frames = append(frames, tone(frameSize, 0.5))
	}
	for i := 0; i < 8; i++ {
		frames = append(frames, tone(frameSize, 0))
	}

	endIndex := -1
	for i, frame := range frames {
		if _, ended := v.ProcessFrame(frame); ended {
			endIndex = i
			break
		}
	}

	// 5 consecutive silence frames end the utterance: frames 10..14.
	if endIndex != 14 {
		t.Fatalf("utterance ended at frame %d, want 14", endIndex)
	}

	segment, duration := v.segment()
	// 6 speech frames plus 2 trailing silence frames. The pre-roll ring
	// holds the 2 unconfirmed speech frames, already counted in the 6.
	wantFrames := 8
	if len(segment) != wantFrames*frameSize {
		t.Errorf("segment has %d samples, want %d", len(segment), wantFrames*frameSize)
	}
	wantDuration := float64(wantFrames*frameSize) / 16000
	if duration != wantDuration {
		t.Errorf("duration = %v, want %v", duration, wantDuration)
	}
}

func TestVADPreRollRecoversLeadingFrames(t *testing.T) {
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frameSize := v.FrameSize()

	// Distinct amplitudes mark the unconfirmed onset frames so we can
	// verify they survive into the segment.
	v.ProcessFrame(tone(frameSize, 0.3))
	v.ProcessFrame(tone(frameSize, 0.4))
	v.ProcessFrame(tone(frameSize, 0.5)) // confirmation frame

	segment, _ := v.segment()
	if len(segment) != 3*frameSize {
		t.Fatalf("segment has %d samples, want %d", len(segment), 3*frameSize)
	}
	if segment[0] != 0.3 || segment[frameSize] != 0.4 || segment[2*frameSize] != 0.5 {
		t.Errorf("pre-roll frames out of order: got leading samples %v, %v, %v",
			segment[0], segment[frameSize], segment[2*frameSize])
	}
}

func TestVADEnergyGateOverridesClassifier(t *testing.T) {
	// The classifier says speech for every frame, but the signal is below
	// the energy threshold, so nothing may be detected.
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	quiet := tone(v.FrameSize(), 0.001)
	for i := 0; i < 20; i++ {
		if isSpeech, _ := v.ProcessFrame(quiet); isSpeech {
			t.Fatal("sub-threshold frame classified as speech")
		}
	}
}

func TestVADClassifierErrorMeansSilence(t *testing.T) {
	failing := ClassifierFunc(func([]float32, int) (bool, error) {
		return true, errTest
	})
	v, err := NewVAD(16000, testVADConfig(), failing, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	loud := tone(v.FrameSize(), 0.5)
	for i := 0; i < 10; i++ {
		if isSpeech, _ := v.ProcessFrame(loud); isSpeech {
			t.Fatal("frame counted as speech despite classifier error")
		}
	}
	segment, _ := v.segment()
	if segment != nil {
		t.Error("classifier errors produced a segment")
	}
}

func TestVADCorrectsFrameLength(t *testing.T) {
	var seen []int
	recorder := ClassifierFunc(func(frame []float32, _ int) (bool, error) {
		seen = append(seen, len(frame))
		return true, nil
	})
	v, err := NewVAD(16000, testVADConfig(), recorder, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frameSize := v.FrameSize()

	v.ProcessFrame(tone(frameSize/2, 0.5))  // short: padded
	v.ProcessFrame(tone(frameSize*2, 0.5))  // long: truncated
	v.ProcessFrame(tone(frameSize, 0.5))    // exact

	for i, n := range seen {
		if n != frameSize {
			t.Errorf("classifier call %d saw %d samples, want %d", i, n, frameSize)
		}
	}
}

func TestVADMaxDurationBound(t *testing.T) {
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frameSize := v.FrameSize()

	// Continuous speech with a 90ms bound: only 3 frames may be consumed.
	samples := tone(frameSize*20, 0.5)
	segment, _ := v.ProcessAudio(samples, 0.09)
	if len(segment) != 3*frameSize {
		t.Errorf("segment has %d samples, want %d", len(segment), 3*frameSize)
	}
}

func TestVADStreamProcess(t *testing.T) {
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frameSize := v.FrameSize()

	frames := make(chan []float32)
	go func() {
		defer close(frames)
		for i := 0; i < 2; i++ {
			frames <- tone(frameSize, 0)
		}
		for i := 0; i < 5; i++ {
			frames <- tone(frameSize, 0.5)
		}
		for i := 0; i < 10; i++ {
			frames <- tone(frameSize, 0)
		}
	}()

	observed := 0
	endSeen := 0
	segment, duration := v.StreamProcess(frames, 10, func(_ []float32, _ bool, ended bool) {
		observed++
		if ended {
			endSeen++
		}
	})

	if len(segment) == 0 || duration == 0 {
		t.Fatal("stream produced no segment")
	}
	// 5 speech frames plus 2 trailing silence frames.
	if want := 7 * frameSize; len(segment) != want {
		t.Errorf("segment has %d samples, want %d", len(segment), want)
	}
	if endSeen != 1 {
		t.Errorf("observer saw %d end events, want 1", endSeen)
	}
	// 2 leading silence + 5 speech + 5 silence to terminate.
	if observed != 12 {
		t.Errorf("observer saw %d frames, want 12", observed)
	}
}

func TestVADResetBetweenSessions(t *testing.T) {
	v, err := NewVAD(16000, testVADConfig(), alwaysSpeech(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	frameSize := v.FrameSize()

	speech := tone(frameSize*5, 0.5)
	first, _ := v.ProcessAudio(speech, 0)
	second, _ := v.ProcessAudio(speech, 0)
	if len(first) != len(second) {
		t.Errorf("sessions diverged: %d vs %d samples", len(first), len(second))
	}

	stats := v.Stats()
	if stats.BufferFrames != 5 {
		t.Errorf("stats report %d buffered frames, want 5", stats.BufferFrames)
	}
}

func TestVADProfiles(t *testing.T) {
	fast := VADProfileConfig("fast", zerolog.Nop())
	if fast.MinSpeechDurationMs != 200 || fast.Aggressiveness != 3 {
		t.Errorf("unexpected fast profile: %+v", fast)
	}

	quality := VADProfileConfig("quality", zerolog.Nop())
	if quality.MaxSilenceDurationMs != 2000 || quality.Aggressiveness != 1 {
		t.Errorf("unexpected quality profile: %+v", quality)
	}

	// Unknown names fall back to normal instead of failing.
	unknown := VADProfileConfig("bogus", zerolog.Nop())
	if unknown != vadProfiles["normal"] {
		t.Errorf("unknown profile did not fall back to normal: %+v", unknown)
	}
}

func TestFrameRing(t *testing.T) {
	r := newFrameRing(2)
	r.push([]float32{1})
	r.push([]float32{2})
	r.push([]float32{3}) // evicts the oldest

	got := r.appendTo(nil)
	if len(got) != 2 || got[0][0] != 2 || got[1][0] != 3 {
		t.Errorf("ring contents = %v, want [[2] [3]]", got)
	}

	r.reset()
	if r.len() != 0 {
		t.Errorf("ring length after reset = %d", r.len())
	}

	// A zero-capacity ring drops every frame.
	z := newFrameRing(0)
	z.push([]float32{1})
	if got := z.appendTo(nil); len(got) != 0 {
		t.Errorf("zero-capacity ring kept %d frames", len(got))
	}
}

func TestEnergyClassifierHysteresis(t *testing.T) {
	c := NewEnergyClassifier()

	loud := tone(480, 0.05)
	mid := tone(480, 0.01) // between the two thresholds
	quiet := tone(480, 0.001)

	if speech, _ := c.IsSpeech(mid, 16000); speech {
		t.Error("mid-level frame counted as speech before activation")
	}
	if speech, _ := c.IsSpeech(loud, 16000); !speech {
		t.Error("loud frame not counted as speech")
	}
	if speech, _ := c.IsSpeech(mid, 16000); !speech {
		t.Error("mid-level frame dropped out of speech while active")
	}
	if speech, _ := c.IsSpeech(quiet, 16000); speech {
		t.Error("quiet frame kept speech active")
	}
}
