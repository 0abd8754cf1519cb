// Package stt is the narrow speech-to-text collaborator boundary: it
// consumes bounded audio segments and produces text. The capture and
// segmentation core never depends on a concrete engine.
package stt

import "context"

// Result represents a speech recognition result.
type Result struct {
	// Text is the recognized text.
	Text string

	// Confidence is the recognition confidence (0.0 to 1.0), when the
	// engine reports one.
	Confidence float64
}

// Config holds configuration for an STT engine.
type Config struct {
	// ModelPath is the path to the model directory.
	ModelPath string

	// SampleRate is the audio sample rate in Hz.
	SampleRate int
}

// Engine transcribes bounded speech segments of mono float32 PCM.
type Engine interface {
	// Initialize loads the model.
	Initialize(config Config) error

	// Transcribe converts one segment to text.
	Transcribe(ctx context.Context, samples []float32) (*Result, error)

	// Close releases resources.
	Close() error
}

// DefaultConfig returns a default STT configuration.
func DefaultConfig(modelPath string) Config {
	return Config{
		ModelPath:  modelPath,
		SampleRate: 16000,
	}
}
