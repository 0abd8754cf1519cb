//go:build !linux

package audio

// pulseRecord is only available on Linux. Other platforms report the
// platform-fallback strategy as unsupported and let the cascade handle it.
func pulseRecord(cfg StreamConfig, frames int) ([]float32, error) {
	return nil, ErrUnsupportedStrategy
}
