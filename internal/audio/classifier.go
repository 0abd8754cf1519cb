package audio

import (
	"encoding/binary"
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// Classifier decides whether a single frame contains speech. The VAD engine
// treats any classifier error as "not speech" for that frame, biasing toward
// missed detections over false triggers.
type Classifier interface {
	IsSpeech(frame []float32, sampleRate int) (bool, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(frame []float32, sampleRate int) (bool, error)

func (f ClassifierFunc) IsSpeech(frame []float32, sampleRate int) (bool, error) {
	return f(frame, sampleRate)
}

// WebRTCClassifier classifies frames with the WebRTC VAD.
type WebRTCClassifier struct {
	vad *webrtcvad.VAD
}

// NewWebRTCClassifier creates a WebRTC-backed classifier.
// Aggressiveness ranges from 0 (permissive) to 3 (very aggressive).
func NewWebRTCClassifier(aggressiveness int) (*WebRTCClassifier, error) {
	if aggressiveness < 0 || aggressiveness > 3 {
		return nil, fmt.Errorf("aggressiveness must be 0-3, got %d", aggressiveness)
	}
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create webrtc vad: %w", err)
	}
	if err := v.SetMode(aggressiveness); err != nil {
		return nil, fmt.Errorf("failed to set vad mode: %w", err)
	}
	return &WebRTCClassifier{vad: v}, nil
}

// IsSpeech converts the float32 frame to S16LE bytes and runs the WebRTC
// detector.
func (c *WebRTCClassifier) IsSpeech(frame []float32, sampleRate int) (bool, error) {
	buf := make([]byte, len(frame)*2)
	for i, s := range frame {
		v := s * 32767
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return c.vad.Process(sampleRate, buf)
}

// EnergyClassifier is a pure-Go classifier using an RMS threshold with
// hysteresis. It is the cgo-free alternative to the WebRTC detector.
type EnergyClassifier struct {
	// SpeechThreshold is the RMS level at which a frame counts as speech.
	SpeechThreshold float64

	// SilenceThreshold is the lower RMS level below which a frame counts
	// as silence once speech is active. Must not exceed SpeechThreshold.
	SilenceThreshold float64

	active bool
}

// NewEnergyClassifier returns an energy classifier with defaults suitable
// for 16 kHz speech.
func NewEnergyClassifier() *EnergyClassifier {
	return &EnergyClassifier{
		SpeechThreshold:  0.015,
		SilenceThreshold: 0.008,
	}
}

func (c *EnergyClassifier) IsSpeech(frame []float32, _ int) (bool, error) {
	level := rms(frame)
	if c.active {
		if level < c.SilenceThreshold {
			c.active = false
		}
	} else {
		if level >= c.SpeechThreshold {
			c.active = true
		}
	}
	return c.active, nil
}
