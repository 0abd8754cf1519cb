// Package output renders assistant state on the console: status lines,
// transcripts, the capture level meter and retry prompts. It is the plain
// collaborator surface the core emits state to.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Console writes user-facing lines to a terminal.
type Console struct {
	mu            sync.Mutex
	writer        io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console behavior.
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp.
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout).
	Writer io.Writer
}

// NewConsole creates a console writer.
func NewConsole(config ConsoleConfig) *Console {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}

	return &Console{
		writer:        writer,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsole creates a console with default settings.
func DefaultConsole() *Console {
	return NewConsole(ConsoleConfig{ShowTimestamp: true})
}

func (c *Console) line(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showTimestamp {
		fmt.Fprintf(c.writer, "[%s] ", time.Now().Format("15:04:05"))
	}
	fmt.Fprintf(c.writer, format+"\n", args...)
}

// Info writes an informational message.
func (c *Console) Info(msg string) {
	c.line("%s", msg)
}

// Warn writes a warning message.
func (c *Console) Warn(msg string) {
	c.line("! %s", msg)
}

// Transcript writes a numbered transcription result.
func (c *Console) Transcript(index int, text string, confidence float64) {
	c.ClearLine()
	if confidence > 0 {
		c.line("[%d] %s (confidence: %.2f)", index, text, confidence)
	} else {
		c.line("[%d] %s", index, text)
	}
}

// RetryPrompt tells the user the capture produced nothing and to try
// again. Capture failures are never surfaced as errors or stack traces.
func (c *Console) RetryPrompt() {
	c.ClearLine()
	c.line("No audio captured. Check your microphone and try again.")
}

// LevelMeter redraws an in-place capture level bar. Speaking frames are
// marked so the user can see the detector tracking them.
func (c *Console) LevelMeter(rms float64, speaking bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	const width = 40
	// RMS of conversational speech rarely exceeds ~0.3; scale so that
	// range fills the bar.
	filled := int(rms / 0.3 * width)
	if filled > width {
		filled = width
	}
	marker := " "
	if speaking {
		marker = "*"
	}
	fmt.Fprintf(c.writer, "\r%s[%-*s]", marker, width, strings.Repeat("#", filled))
}

// ClearLine erases the meter line before regular output.
func (c *Console) ClearLine() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, "\r%80s\r", " ")
}
