package scale

import (
	"errors"
	"fmt"
	"time"
)

// WeightPlaceholder is displayed whenever no reading is available
const WeightPlaceholder = "--.--"

// SessionState denotes the current state of a weight acquisition session
type SessionState int

const (

	// StateIdle is active before a session has been started
	StateIdle SessionState = iota

	// StateAwaitingPermission is active while radio / permission checks are pending
	StateAwaitingPermission

	// StateScanning is active while listening for advertisements from the scale
	StateScanning

	// StateCompleted is active after a reading has been obtained
	StateCompleted

	// StateTimedOut is active after the scan window elapsed without any reading
	StateTimedOut

	// StateFailed is active after a session could not be run to completion
	StateFailed
)

// String returns a human-readable representation of the session state
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPermission:
		return "awaiting permission"
	case StateScanning:
		return "scanning"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed out"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// IsTerminal returns if the state denotes a finished session
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateFailed
}

// Reading denotes a single decoded weight measurement from the scale
type Reading struct {
	TimeStamp time.Time
	WeightKg  float64
	Stable    bool
}

// WeightString returns the weight formatted with two decimal digits
func (r Reading) WeightString() string {
	return fmt.Sprintf("%.2f", r.WeightKg)
}

// SessionStatus denotes the current status of an acquisition session
type SessionStatus struct {
	State       SessionState
	Countdown   int
	LastReading *Reading
	Error       error
}

// WeightDisplay returns the last weight as display string, falling back to
// a placeholder if no reading has been recorded so far
func (s SessionStatus) WeightDisplay() string {
	if s.LastReading == nil {
		return WeightPlaceholder
	}

	return s.LastReading.WeightString()
}

// Text returns a human-readable status line suitable for direct display
func (s SessionStatus) Text() string {
	switch s.State {
	case StateIdle:
		return "ready"
	case StateAwaitingPermission:
		return "checking bluetooth permissions"
	case StateScanning:
		return fmt.Sprintf("scanning (%ds)", s.Countdown)
	case StateCompleted:
		if s.LastReading != nil && !s.LastReading.Stable {
			return fmt.Sprintf("weight %s kg (not confirmed stable)", s.LastReading.WeightString())
		}
		return fmt.Sprintf("weight %s kg", s.WeightDisplay())
	case StateTimedOut:
		return "no weight detected"
	case StateFailed:
		if s.Error != nil {
			return fmt.Sprintf("failed: %s", s.Error)
		}
		return "failed"
	}

	return "unknown"
}

var (

	// ErrFrameTooShort denotes a payload below the minimum frame size
	ErrFrameTooShort = errors.New("advertisement payload too short")

	// ErrSessionActive denotes an attempt to start an already running session
	ErrSessionActive = errors.New("acquisition session already active")

	// ErrRadioOff denotes a bluetooth adapter that is not powered on
	ErrRadioOff = errors.New("bluetooth adapter is not powered on")

	// ErrPermissionDenied denotes missing bluetooth / location permissions
	ErrPermissionDenied = errors.New("bluetooth permissions not granted")

	// ErrScanStart denotes a failure to initiate scanning on the radio
	ErrScanStart = errors.New("failed to start scanning")

	// ErrNoTargetAddress denotes a session configured without a target device
	ErrNoTargetAddress = errors.New("no target device address configured")
)
