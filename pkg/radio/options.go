package radio

import (
	"github.com/fako1024/btweight/pkg/scale"
	"github.com/fako1024/gatt"
)

// WithDevice sets the Bluetooth device
func WithDevice(btDevice gatt.Device) func(*Radio) {
	return func(r *Radio) {
		r.btDevice = btDevice
	}
}

// WithLogger sets a logger for the radio
func WithLogger(logger scale.Logger) func(*Radio) {
	return func(r *Radio) {
		r.logger = logger
	}
}
