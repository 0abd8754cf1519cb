package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emmett/aria/internal/audio"
	"github.com/emmett/aria/internal/config"
)

// ListDevices prints all capture devices with their resolved properties.
func ListDevices() error {
	backend, err := audio.NewMalgoBackend()
	if err != nil {
		return fmt.Errorf("failed to initialize audio backend: %w", err)
	}
	defer backend.Close()

	devices, err := backend.Devices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No audio capture devices found.")
		return fmt.Errorf("no devices found")
	}

	fmt.Printf("Found %d capture device(s):\n\n", len(devices))
	for _, device := range devices {
		marker := ""
		if device.IsDefault {
			marker = " [DEFAULT]"
		}
		fmt.Printf("%d. %s%s\n", device.Index, device.Name, marker)
		fmt.Printf("   ID: %s\n", device.ID)
		fmt.Println()
	}

	fmt.Println("To use a specific device, run:")
	fmt.Printf("  aria --device %d\n", devices[0].Index)

	return nil
}

// ProbeMicrophone records a short diagnostic sample and reports the
// signal level so the user can verify their setup before a session.
func ProbeMicrophone(cfg *config.Config, logger zerolog.Logger) error {
	backend, err := audio.NewMalgoBackend()
	if err != nil {
		return fmt.Errorf("failed to initialize audio backend: %w", err)
	}

	manager, err := audio.NewManager(cfg.CaptureConfig(), backend, logger)
	if err != nil {
		backend.Close()
		return err
	}
	defer manager.Close()

	fmt.Printf("Probing %s, speak normally...\n", manager.Device().Name)

	report := manager.Probe()
	if !report.OK() {
		return fmt.Errorf("microphone probe failed: %w", report.Err)
	}

	fmt.Printf("RMS level: %.4f\n", report.Quality.RMS)
	fmt.Printf("Peak:      %.4f\n", report.Quality.Peak)
	fmt.Printf("Clipping:  %.1f%%\n", report.Quality.ClippingPercent)
	fmt.Printf("Verdict:   %s\n", report.Level)

	return nil
}
