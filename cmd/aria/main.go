package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/emmett/aria/internal/app"
	"github.com/emmett/aria/internal/config"
	"github.com/emmett/aria/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file (default: ~/.ariarc or /etc/aria/config.yaml)")
	listDevices  = flag.Bool("list-devices", false, "List all available audio input devices")
	probe        = flag.Bool("probe", false, "Record a short sample and report microphone signal quality")
	device       = flag.Int("device", -1, "Audio input device index (use --list-devices to see available devices)")
	profile      = flag.String("profile", "", "VAD profile: fast, normal, quality")
	modelPath    = flag.String("model", "", "Path to the speech recognition model directory")
	hotkeyCombo  = flag.String("hotkey", "", "Push-to-talk hotkey, e.g. ctrl+shift+space")
	maxUtterance = flag.Float64("max-utterance", 0, "Maximum utterance length in seconds")
	logLevel     = flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Aria v%s\n", Version)
		fmt.Printf("  Commit: %s\n", GitCommit)
		fmt.Printf("  Built:  %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, os.Stderr)

	if *listDevices {
		if err := app.ListDevices(); err != nil {
			os.Exit(1)
		}
		return
	}

	if *probe {
		if err := app.ProbeMicrophone(cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	assistant := app.NewAssistant(cfg, logger)
	if err := assistant.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides file configuration with explicitly set flags.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			idx := *device
			cfg.Audio.InputDevice = &idx
		case "profile":
			cfg.VAD.Profile = *profile
		case "model":
			cfg.STT.ModelPath = *modelPath
		case "hotkey":
			cfg.Hotkey = *hotkeyCombo
		case "max-utterance":
			cfg.Record.MaxUtteranceSeconds = *maxUtterance
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})
}
