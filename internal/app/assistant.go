// Package app wires the capture core, the detector, the hotkey and the
// speech-to-text collaborator into the interactive assistant.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/emmett/aria/internal/audio"
	"github.com/emmett/aria/internal/config"
	"github.com/emmett/aria/internal/input"
	"github.com/emmett/aria/internal/output"
	"github.com/emmett/aria/internal/stt"
)

// Assistant runs the push-to-talk capture and transcription loop. Each
// hotkey press opens one utterance session: the detector bounds it, the
// engine transcribes it, the console reports it.
type Assistant struct {
	cfg     *config.Config
	log     zerolog.Logger
	manager *audio.Manager
	engine  stt.Engine
	console *output.Console

	transcripts int
}

// NewAssistant creates an assistant from a validated configuration.
func NewAssistant(cfg *config.Config, logger zerolog.Logger) *Assistant {
	return &Assistant{
		cfg:     cfg,
		log:     logger.With().Str("component", "assistant").Logger(),
		console: output.DefaultConsole(),
	}
}

// Run builds the pipeline and serves hotkey sessions until interrupted.
func (a *Assistant) Run() error {
	backend, err := audio.NewMalgoBackend()
	if err != nil {
		return fmt.Errorf("failed to initialize audio backend: %w", err)
	}

	a.manager, err = audio.NewManager(a.cfg.CaptureConfig(), backend, a.log)
	if err != nil {
		backend.Close()
		return err
	}
	defer a.manager.Close()

	vad, err := audio.NewVAD(a.cfg.Audio.SampleRate, a.cfg.VADConfig(a.log), nil, a.log)
	if err != nil {
		return fmt.Errorf("failed to create voice detector: %w", err)
	}
	a.manager.SetVAD(vad)
	a.manager.SetFrameObserver(func(frame []float32, isSpeech, ended bool) {
		if !ended {
			a.console.LevelMeter(audio.Analyze(frame).RMS, isSpeech)
		}
	})

	if a.cfg.STT.ModelPath == "" {
		return fmt.Errorf("no model path configured")
	}
	a.console.Info("Loading speech recognition model...")
	a.engine = stt.NewVoskEngine()
	sttCfg := stt.Config{ModelPath: a.cfg.STT.ModelPath, SampleRate: a.cfg.Audio.SampleRate}
	if err := a.engine.Initialize(sttCfg); err != nil {
		return fmt.Errorf("failed to initialize speech engine: %w", err)
	}
	defer a.engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.console.Info("Exiting...")
		cancel()
	}()

	// The toggle callback must not block; sessions run on the main loop.
	sessions := make(chan struct{}, 1)
	toggle := input.NewToggle(func(active bool) {
		if active {
			select {
			case sessions <- struct{}{}:
			default:
			}
		}
	}, a.log)

	if err := toggle.Start(ctx, a.cfg.Hotkey); err != nil {
		return err
	}
	defer toggle.Stop()

	a.console.Info(fmt.Sprintf("Listening on %q (device: %s)", a.cfg.Hotkey, a.manager.Device().Name))
	a.console.Info("Press the hotkey and speak. Ctrl+C to exit.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sessions:
			a.session(ctx)
		}
	}
}

// session captures one utterance and transcribes it. Capture failures
// surface as retry prompts; only the engine can fail the session.
func (a *Assistant) session(ctx context.Context) {
	a.console.Info("Listening...")

	maxUtterance := time.Duration(a.cfg.Record.MaxUtteranceSeconds * float64(time.Second))
	captured := a.manager.RecordStrategy(maxUtterance, audio.StrategyStreamingVAD)
	a.console.ClearLine()
	if captured == nil {
		a.console.RetryPrompt()
		return
	}

	a.log.Debug().
		Float64("duration_s", captured.Duration).
		Stringer("strategy", captured.StrategyUsed).
		Msg("utterance captured")

	result, err := a.engine.Transcribe(ctx, captured.Samples)
	if err != nil {
		a.log.Error().Err(err).Msg("transcription failed")
		a.console.Warn("Transcription failed, try again.")
		return
	}
	if result.Text == "" {
		a.console.Info("No speech recognized.")
		return
	}

	a.transcripts++
	a.console.Transcript(a.transcripts, result.Text, result.Confidence)
}
