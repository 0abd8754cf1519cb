package audio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// VADConfig holds configuration for the voice activity detector.
// Invalid values fail Validate; there is no silent clamping.
type VADConfig struct {
	// Aggressiveness is the WebRTC VAD mode, 0 (permissive) to 3.
	Aggressiveness int

	// FrameDurationMs is the frame length: 10, 20 or 30 ms.
	FrameDurationMs int

	// MinSpeechDurationMs is the consecutive speech needed to confirm an
	// utterance start.
	MinSpeechDurationMs int

	// MaxSilenceDurationMs is the consecutive silence that ends an
	// utterance.
	MaxSilenceDurationMs int

	// PreSpeechBufferMs is the rolling window kept before a confirmed
	// speech onset.
	PreSpeechBufferMs int

	// PostSpeechBufferMs is the trailing silence kept after the last
	// speech frame.
	PostSpeechBufferMs int

	// EnergyThreshold is the minimum frame RMS; quieter frames are never
	// classified as speech, regardless of the classifier.
	EnergyThreshold float64
}

// DefaultVADConfig returns the "normal" profile values.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Aggressiveness:       2,
		FrameDurationMs:      30,
		MinSpeechDurationMs:  300,
		MaxSilenceDurationMs: 1500,
		PreSpeechBufferMs:    200,
		PostSpeechBufferMs:   400,
		EnergyThreshold:      0.01,
	}
}

// Validate rejects out-of-range values.
func (c VADConfig) Validate() error {
	if c.Aggressiveness < 0 || c.Aggressiveness > 3 {
		return errors.New("aggressiveness must be 0-3")
	}
	if c.FrameDurationMs != 10 && c.FrameDurationMs != 20 && c.FrameDurationMs != 30 {
		return errors.New("frame duration must be 10, 20 or 30 ms")
	}
	if c.MinSpeechDurationMs <= 0 {
		return errors.New("min speech duration must be positive")
	}
	if c.MaxSilenceDurationMs <= 0 {
		return errors.New("max silence duration must be positive")
	}
	if c.PreSpeechBufferMs < 0 || c.PostSpeechBufferMs < 0 {
		return errors.New("speech buffers must not be negative")
	}
	if c.EnergyThreshold < 0 {
		return errors.New("energy threshold must not be negative")
	}
	return nil
}

// VAD converts a frame sequence into a bounded speech segment. It is
// single-threaded and frame-synchronous: callers must serialize access to
// one instance and call Reset (directly or via the batch/stream entry
// points) before each session.
type VAD struct {
	cfg        VADConfig
	sampleRate int
	classifier Classifier
	log        zerolog.Logger

	frameSize        int
	minSpeechFrames  int
	maxSilenceFrames int
	preSpeechFrames  int
	postSpeechFrames int

	isSpeech      bool
	speechStarted bool
	consecSpeech  int
	consecSilence int
	ring          *frameRing
	out           [][]float32
}

// NewVAD creates a detector for the given sample rate. A nil classifier
// selects the WebRTC detector at the configured aggressiveness.
func NewVAD(sampleRate int, cfg VADConfig, classifier Classifier, logger zerolog.Logger) (*VAD, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("sample rate %d not supported (8k, 16k, 32k, 48k)", sampleRate)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vad config: %w", err)
	}
	if classifier == nil {
		c, err := NewWebRTCClassifier(cfg.Aggressiveness)
		if err != nil {
			return nil, err
		}
		classifier = c
	}

	v := &VAD{
		cfg:              cfg,
		sampleRate:       sampleRate,
		classifier:       classifier,
		log:              logger.With().Str("component", "vad").Logger(),
		frameSize:        sampleRate * cfg.FrameDurationMs / 1000,
		minSpeechFrames:  cfg.MinSpeechDurationMs / cfg.FrameDurationMs,
		maxSilenceFrames: cfg.MaxSilenceDurationMs / cfg.FrameDurationMs,
		preSpeechFrames:  cfg.PreSpeechBufferMs / cfg.FrameDurationMs,
		postSpeechFrames: cfg.PostSpeechBufferMs / cfg.FrameDurationMs,
	}
	v.Reset()

	v.log.Debug().
		Int("frame_ms", cfg.FrameDurationMs).
		Int("min_speech_ms", cfg.MinSpeechDurationMs).
		Int("max_silence_ms", cfg.MaxSilenceDurationMs).
		Msg("vad configured")
	return v, nil
}

// FrameSize returns the expected frame length in samples.
func (v *VAD) FrameSize() int { return v.frameSize }

// Reset returns the detector to the idle state and clears all counters and
// buffers. It must be called before each new session.
func (v *VAD) Reset() {
	v.isSpeech = false
	v.speechStarted = false
	v.consecSpeech = 0
	v.consecSilence = 0
	v.ring = newFrameRing(v.preSpeechFrames)
	v.out = nil
}

// ProcessFrame classifies one frame and advances the state machine.
// It returns whether the frame was speech and whether the utterance ended.
func (v *VAD) ProcessFrame(frame []float32) (bool, bool) {
	// Wrong-length frames are corrected, never rejected, to keep the
	// state machine deterministic.
	if len(frame) != v.frameSize {
		if len(frame) < v.frameSize {
			padded := make([]float32, v.frameSize)
			copy(padded, frame)
			frame = padded
		} else {
			frame = frame[:v.frameSize]
		}
	}

	// Energy gate precedes the classifier: frames below the threshold are
	// never speech, whatever the classifier says.
	isSpeechFrame := false
	if rms(frame) >= v.cfg.EnergyThreshold {
		speech, err := v.classifier.IsSpeech(frame, v.sampleRate)
		if err != nil {
			v.log.Error().Err(err).Msg("classifier failed, treating frame as silence")
		} else {
			isSpeechFrame = speech
		}
	}

	speechEnded := false

	if isSpeechFrame {
		v.consecSpeech++
		v.consecSilence = 0

		if !v.speechStarted && v.consecSpeech >= v.minSpeechFrames {
			v.speechStarted = true
			v.isSpeech = true
			// Recover the pre-roll window ahead of the current frame.
			v.out = v.ring.appendTo(v.out)
			v.log.Debug().Int("preroll_frames", v.ring.len()).Msg("speech started")
		}

		if v.speechStarted {
			v.out = append(v.out, frame)
		} else {
			v.ring.push(frame)
		}
	} else {
		v.consecSilence++
		v.consecSpeech = 0

		if v.speechStarted {
			// Keep only the post-speech window of trailing silence;
			// the counter still runs to the termination bound.
			if v.consecSilence <= v.postSpeechFrames {
				v.out = append(v.out, frame)
			}
			if v.consecSilence >= v.maxSilenceFrames {
				speechEnded = true
				v.isSpeech = false
				v.log.Debug().Msg("speech ended")
			}
		} else {
			v.ring.push(frame)
		}
	}

	return isSpeechFrame, speechEnded
}

// ProcessAudio runs a whole buffer through the detector and extracts the
// speech segment. maxDuration (seconds) bounds how much of the buffer is
// consumed; zero means unbounded. Returns nil and 0 when no speech was
// confirmed.
func (v *VAD) ProcessAudio(samples []float32, maxDuration float64) ([]float32, float64) {
	v.Reset()

	maxFrames := 0
	if maxDuration > 0 {
		maxFrames = int(maxDuration * float64(v.sampleRate) / float64(v.frameSize))
	}

	processed := 0
	for start := 0; start < len(samples); start += v.frameSize {
		if maxFrames > 0 && processed >= maxFrames {
			break
		}
		end := start + v.frameSize
		if end > len(samples) {
			end = len(samples) // trailing partial; ProcessFrame pads it
		}
		_, ended := v.ProcessFrame(samples[start:end])
		processed++
		if ended {
			break
		}
	}

	return v.segment()
}

// StreamProcess consumes a live frame source until end of speech or until
// maxDuration (seconds) of frames have been processed. The source may be
// infinite and non-restartable. onFrame, when non-nil, is invoked for every
// frame so external observers (e.g. a level meter) can follow along.
func (v *VAD) StreamProcess(frames <-chan []float32, maxDuration float64, onFrame func(frame []float32, isSpeech, ended bool)) ([]float32, float64) {
	v.Reset()

	maxFrames := int(maxDuration * float64(v.sampleRate) / float64(v.frameSize))
	processed := 0

	for frame := range frames {
		if maxFrames > 0 && processed >= maxFrames {
			v.log.Debug().Msg("max duration reached")
			break
		}
		isSpeech, ended := v.ProcessFrame(frame)
		processed++
		if onFrame != nil {
			onFrame(frame, isSpeech, ended)
		}
		if ended {
			break
		}
	}

	return v.segment()
}

// segment flattens the accumulated output buffer.
func (v *VAD) segment() ([]float32, float64) {
	if len(v.out) == 0 {
		return nil, 0
	}
	total := 0
	for _, f := range v.out {
		total += len(f)
	}
	segment := make([]float32, 0, total)
	for _, f := range v.out {
		segment = append(segment, f...)
	}
	duration := float64(len(segment)) / float64(v.sampleRate)
	v.log.Info().Float64("duration_s", duration).Int("frames", len(v.out)).Msg("speech segment extracted")
	return segment, duration
}

// VADStats is a snapshot of the current session state.
type VADStats struct {
	SpeechStarted bool
	IsSpeech      bool
	ConsecSpeech  int
	ConsecSilence int
	BufferFrames  int
	BufferSeconds float64
}

// Stats returns the current session counters.
func (v *VAD) Stats() VADStats {
	return VADStats{
		SpeechStarted: v.speechStarted,
		IsSpeech:      v.isSpeech,
		ConsecSpeech:  v.consecSpeech,
		ConsecSilence: v.consecSilence,
		BufferFrames:  len(v.out),
		BufferSeconds: float64(len(v.out)*v.frameSize) / float64(v.sampleRate),
	}
}

// vadProfiles are fixed bundles trading detection speed against
// false-trigger resistance.
var vadProfiles = map[string]VADConfig{
	"fast": {
		Aggressiveness:       3,
		FrameDurationMs:      30,
		MinSpeechDurationMs:  200,
		MaxSilenceDurationMs: 1000,
		PreSpeechBufferMs:    100,
		PostSpeechBufferMs:   200,
		EnergyThreshold:      0.01,
	},
	"normal": DefaultVADConfig(),
	"quality": {
		Aggressiveness:       1,
		FrameDurationMs:      30,
		MinSpeechDurationMs:  400,
		MaxSilenceDurationMs: 2000,
		PreSpeechBufferMs:    300,
		PostSpeechBufferMs:   500,
		EnergyThreshold:      0.01,
	},
}

// VADProfileConfig returns the named preset, falling back to "normal" with
// a diagnostic on an unrecognized name.
func VADProfileConfig(profile string, logger zerolog.Logger) VADConfig {
	cfg, ok := vadProfiles[profile]
	if !ok {
		logger.Warn().Str("profile", profile).Msg("unknown vad profile, using normal")
		return vadProfiles["normal"]
	}
	return cfg
}

// NewVADProfile creates a detector from a named preset.
func NewVADProfile(profile string, sampleRate int, classifier Classifier, logger zerolog.Logger) (*VAD, error) {
	return NewVAD(sampleRate, VADProfileConfig(profile, logger), classifier, logger)
}
