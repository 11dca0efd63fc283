package scale

import "time"

// Advertisement denotes a single BLE advertisement frame as delivered by the
// radio layer, carrying the emitting device address and its service data
// payloads (keyed by lower-case service UUID)
type Advertisement struct {
	Addr        string
	ServiceData map[string][]byte
}

// ScanOptions denotes the parameters of a scan request issued to the radio
type ScanOptions struct {

	// Timeout denotes the hard scan window after which the radio stops
	// scanning and invokes the timeout callback
	Timeout time.Duration

	// TargetAddr is an optional filter hint for the radio layer; the session
	// filters on its own regardless
	TargetAddr string
}

// Radio denotes the external BLE scanning facility used by a session. All
// calls are asynchronous; advertisements and the scan timeout are delivered
// through the provided callbacks
type Radio interface {

	// Scan initiates scanning, delivering matching advertisements to onAdv
	// and the expiry of the scan window to onTimeout
	Scan(opts ScanOptions, onAdv func(Advertisement), onTimeout func()) error

	// StopScan terminates an ongoing scan (no-op if none is active)
	StopScan() error
}

// PermissionStatus denotes the per-permission grant state required for
// scanning on the host platform
type PermissionStatus struct {
	Scan     bool
	Connect  bool
	Location bool
}

// Granted returns if all required permissions have been granted
func (p PermissionStatus) Granted() bool {
	return p.Scan && p.Connect && p.Location
}

// PermissionGate denotes the platform facility gating session start
type PermissionGate interface {

	// PoweredOn returns if the bluetooth adapter is powered on
	PoweredOn() bool

	// RequestPermissions requests / queries the permissions required for
	// scanning and returns their grant state
	RequestPermissions() (PermissionStatus, error)
}

// Session denotes a weight acquisition session as observed by a UI or API
// collaborator
type Session interface {

	// Start begins a new acquisition; only valid from idle or a terminal state
	Start() error

	// Cancel aborts any ongoing acquisition; idempotent, safe in any state
	Cancel()

	// Status returns the current session status
	Status() SessionStatus

	// Elapsed returns the time spent in the current / last acquisition
	Elapsed() time.Duration

	// Close terminates the session and releases the radio
	Close() error
}
