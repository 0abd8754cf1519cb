package audio

import "fmt"

// ResolveDevice selects the effective capture device. A valid preferred
// index wins; otherwise the platform default input; otherwise the first
// device reporting at least one input channel. ErrNoInputDevice when
// nothing qualifies.
func ResolveDevice(b Backend, preferred *int) (*DeviceDescriptor, error) {
	devices, err := b.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if preferred != nil {
		idx := *preferred
		if idx >= 0 && idx < len(devices) && devices[idx].Channels > 0 {
			d := devices[idx]
			return &d, nil
		}
	}

	for _, d := range devices {
		if d.IsDefault && d.Channels > 0 {
			d := d
			return &d, nil
		}
	}

	for _, d := range devices {
		if d.Channels > 0 {
			d := d
			return &d, nil
		}
	}

	return nil, ErrNoInputDevice
}
