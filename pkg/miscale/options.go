package miscale

import (
	"time"

	"github.com/fako1024/btweight/pkg/scale"
)

// WithTargetAddress sets the address of the scale to listen for (MAC on
// Linux, UUID on OS X)
func WithTargetAddress(addr string) func(*Session) {
	return func(s *Session) {
		s.targetAddr = addr
	}
}

// WithServiceUUID overrides the weight service UUID filter
func WithServiceUUID(serviceUUID string) func(*Session) {
	return func(s *Session) {
		s.serviceUUID = serviceUUID
	}
}

// WithScanWindow sets the hard scan timeout after which the session terminates
func WithScanWindow(window time.Duration) func(*Session) {
	return func(s *Session) {
		s.scanWindow = window
	}
}

// WithCountdownStart sets the initial value of the visible countdown
func WithCountdownStart(n int) func(*Session) {
	return func(s *Session) {
		s.countdownStart = n
	}
}

// WithCountdownInterval sets the interval of the visible countdown tick
func WithCountdownInterval(interval time.Duration) func(*Session) {
	return func(s *Session) {
		s.countdownTick = interval
	}
}

// WithRadio sets the radio facility used for scanning
func WithRadio(r scale.Radio) func(*Session) {
	return func(s *Session) {
		s.btRadio = r
	}
}

// WithPermissionGate sets the permission gate consulted on session start
func WithPermissionGate(gate scale.PermissionGate) func(*Session) {
	return func(s *Session) {
		s.gate = gate
	}
}

// WithLogger sets a logger for the session
func WithLogger(logger scale.Logger) func(*Session) {
	return func(s *Session) {
		s.logger = logger
	}
}
