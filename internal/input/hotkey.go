// Package input handles the global push-to-talk toggle.
package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

// Toggle registers a global hotkey and flips a listening state on every
// press. The callback runs on the event goroutine, so it must not block.
type Toggle struct {
	mu       sync.Mutex
	hk       *hotkey.Hotkey
	active   bool
	onToggle func(active bool)
	cancel   context.CancelFunc
	done     chan struct{}
	log      zerolog.Logger
}

// NewToggle creates a toggle with the given state callback.
func NewToggle(onToggle func(active bool), logger zerolog.Logger) *Toggle {
	return &Toggle{
		onToggle: onToggle,
		done:     make(chan struct{}),
		log:      logger.With().Str("component", "hotkey").Logger(),
	}
}

// Start parses and registers the hotkey, then listens for presses until
// the context is cancelled or Stop is called.
func (t *Toggle) Start(ctx context.Context, combo string) error {
	mods, key, err := parseCombo(combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey %q: %w", combo, err)
	}

	t.hk = hotkey.New(mods, key)
	if err := t.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", combo, err)
	}
	t.log.Debug().Str("combo", combo).Msg("hotkey registered")

	ctx, t.cancel = context.WithCancel(ctx)

	go func() {
		defer close(t.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-t.hk.Keydown():
				if !ok {
					return
				}
				t.mu.Lock()
				t.active = !t.active
				active := t.active
				t.mu.Unlock()

				if t.onToggle != nil {
					t.onToggle(active)
				}
			}
		}
	}()

	return nil
}

// Stop unregisters the hotkey and waits briefly for the event loop to
// exit.
func (t *Toggle) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.hk != nil {
		t.hk.Unregister()
	}
	if t.done != nil {
		select {
		case <-t.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Active reports the current toggle state.
func (t *Toggle) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

var keyNames = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"escape": hotkey.KeyEscape,
	"esc":    hotkey.KeyEscape,
	"a":      hotkey.KeyA,
	"b":      hotkey.KeyB,
	"c":      hotkey.KeyC,
	"d":      hotkey.KeyD,
	"e":      hotkey.KeyE,
	"f":      hotkey.KeyF,
	"g":      hotkey.KeyG,
	"h":      hotkey.KeyH,
	"i":      hotkey.KeyI,
	"j":      hotkey.KeyJ,
	"k":      hotkey.KeyK,
	"l":      hotkey.KeyL,
	"m":      hotkey.KeyM,
	"n":      hotkey.KeyN,
	"o":      hotkey.KeyO,
	"p":      hotkey.KeyP,
	"q":      hotkey.KeyQ,
	"r":      hotkey.KeyR,
	"s":      hotkey.KeyS,
	"t":      hotkey.KeyT,
	"u":      hotkey.KeyU,
	"v":      hotkey.KeyV,
	"w":      hotkey.KeyW,
	"x":      hotkey.KeyX,
	"y":      hotkey.KeyY,
	"z":      hotkey.KeyZ,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
	"f1":     hotkey.KeyF1,
	"f2":     hotkey.KeyF2,
	"f3":     hotkey.KeyF3,
	"f4":     hotkey.KeyF4,
	"f5":     hotkey.KeyF5,
	"f6":     hotkey.KeyF6,
	"f7":     hotkey.KeyF7,
	"f8":     hotkey.KeyF8,
	"f9":     hotkey.KeyF9,
	"f10":    hotkey.KeyF10,
	"f11":    hotkey.KeyF11,
	"f12":    hotkey.KeyF12,
}

// parseCombo splits a combo like "ctrl+shift+space" into modifiers and a
// single key.
func parseCombo(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(s), "+")

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			return nil, 0, fmt.Errorf("empty hotkey component")
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win":
			mods = append(mods, modSuper())
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, ok := keyNames[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %s", part)
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}

	return mods, key, nil
}
