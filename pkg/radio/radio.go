package radio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fako1024/btweight/pkg/scale"
	"github.com/fako1024/gatt"
)

const btBaseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

// Radio denotes a gatt-backed BLE scanning facility. It converts discovered
// peripherals into advertisement frames and enforces the hard scan timeout
type Radio struct {
	poweredOn bool
	scanning  bool

	onAdv     func(adv scale.Advertisement)
	onTimeout func()
	timeout   *time.Timer

	btDevice gatt.Device

	logger scale.Logger

	mutex sync.Mutex
}

// New instantiates a new Radio struct, executing functional options, if any
func New(options ...func(*Radio)) (*Radio, error) {

	r := &Radio{
		logger: &scale.NullLogger{},
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(r)
	}

	// Initialize a new GATT device (if not provided as option)
	if r.btDevice == nil {
		btDevice, err := gatt.NewDevice(defaultBTClientOptions...)
		if err != nil {
			return nil, err
		}
		r.btDevice = btDevice
	}

	return r, r.subscribe()
}

// PoweredOn returns if the bluetooth adapter is powered on
func (r *Radio) PoweredOn() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.poweredOn
}

// RequestPermissions returns the grant state of the permissions required for
// scanning. On BlueZ there is no per-application runtime prompt, so grants
// mirror adapter availability
func (r *Radio) RequestPermissions() (scale.PermissionStatus, error) {
	on := r.PoweredOn()

	return scale.PermissionStatus{
		Scan:     on,
		Connect:  on,
		Location: on,
	}, nil
}

// Scan initiates scanning, delivering advertisement frames to onAdv and the
// expiry of the scan window to onTimeout
func (r *Radio) Scan(opts scale.ScanOptions, onAdv func(adv scale.Advertisement), onTimeout func()) error {

	r.mutex.Lock()
	if !r.poweredOn {
		r.mutex.Unlock()
		return scale.ErrRadioOff
	}
	if r.scanning {
		r.mutex.Unlock()
		return fmt.Errorf("scan already in progress")
	}
	r.scanning = true
	r.onAdv = onAdv
	r.onTimeout = onTimeout
	if opts.Timeout > 0 {
		r.timeout = time.AfterFunc(opts.Timeout, r.handleTimeout)
	}
	r.mutex.Unlock()

	// Scan without service filter (the scale broadcasts its data in the
	// advertisement itself), allowing duplicates to receive frame updates
	if err := r.btDevice.Scan([]gatt.UUID{}, true); err != nil {
		_ = r.StopScan()
		return err
	}

	return nil
}

// StopScan terminates an ongoing scan and disarms the timeout (no-op if no
// scan is active)
func (r *Radio) StopScan() error {

	r.mutex.Lock()
	if r.timeout != nil {
		r.timeout.Stop()
		r.timeout = nil
	}
	wasScanning := r.scanning
	r.scanning = false
	r.onAdv = nil
	r.onTimeout = nil
	r.mutex.Unlock()

	if !wasScanning {
		return nil
	}

	return r.btDevice.StopScanning()
}

////////////////////////////////////////////////////////////////////////////////

func (r *Radio) subscribe() error {

	// Register handlers
	r.btDevice.Handle(
		gatt.AddPeripheralDiscovered(r.onPeriphDiscovered),
	)

	// Initialize the device
	return r.btDevice.Init(r.onStateChanged)
}

func (r *Radio) onStateChanged(d gatt.Device, s gatt.State) {
	r.mutex.Lock()
	r.poweredOn = s == gatt.StatePoweredOn
	r.mutex.Unlock()

	r.logger.Debugf("bluetooth adapter state changed to `%v`", s)
}

func (r *Radio) onPeriphDiscovered(p gatt.Peripheral, a *gatt.Advertisement, rssi int) {

	r.mutex.Lock()
	onAdv := r.onAdv
	r.mutex.Unlock()

	if onAdv == nil || a == nil {
		return
	}

	frame := scale.Advertisement{
		Addr:        p.ID(),
		ServiceData: make(map[string][]byte, len(a.ServiceData)),
	}
	for _, sd := range a.ServiceData {
		frame.ServiceData[normalizeUUID(sd.UUID.String())] = sd.Data
	}

	r.logger.Debugf("discovered device `%s/%s` (RSSI: %d)", p.Name(), p.ID(), rssi)

	onAdv(frame)
}

func (r *Radio) handleTimeout() {

	r.mutex.Lock()
	onTimeout := r.onTimeout
	r.timeout = nil
	r.scanning = false
	r.onAdv = nil
	r.onTimeout = nil
	r.mutex.Unlock()

	if err := r.btDevice.StopScanning(); err != nil {
		r.logger.Warnf("failed to stop scanning after timeout: %s", err)
	}

	if onTimeout != nil {
		onTimeout()
	}
}

////////////////////////////////////////////////////////////////////////////////

// normalizeUUID expands 16 / 32 bit short form UUIDs to their full 128 bit
// bluetooth base UUID representation (lower-case, dashed)
func normalizeUUID(u string) string {

	u = strings.ToLower(strings.ReplaceAll(u, "-", ""))
	if len(u) == 4 {
		u = "0000" + u
	}

	switch len(u) {
	case 8:
		return u + btBaseUUIDSuffix
	case 32:
		return u[:8] + "-" + u[8:12] + "-" + u[12:16] + "-" + u[16:20] + "-" + u[20:]
	}

	return u
}
