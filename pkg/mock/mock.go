package mock

import (
	"math"
	"sync"
	"time"

	"github.com/fako1024/btweight/pkg/scale"
)

// Frame denotes a scripted advertisement played back during a scan, delayed
// relative to the previous frame
type Frame struct {
	Delay time.Duration
	Adv   scale.Advertisement
}

// Radio denotes a mock scanning facility replaying scripted advertisement
// frames, acting as its own permission gate
type Radio struct {
	poweredOn   bool
	permissions scale.PermissionStatus

	frames  []Frame
	scanErr error

	scanCalls int
	stopCalls int
	cancel    chan struct{}

	mutex sync.Mutex
}

// New instantiates a new mock radio with the adapter powered on and all
// permissions granted
func New() *Radio {
	return &Radio{
		poweredOn: true,
		permissions: scale.PermissionStatus{
			Scan:     true,
			Connect:  true,
			Location: true,
		},
	}
}

// SetPoweredOn sets the simulated adapter power state
func (m *Radio) SetPoweredOn(on bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.poweredOn = on
}

// SetPermissions sets the simulated permission grant state
func (m *Radio) SetPermissions(permissions scale.PermissionStatus) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.permissions = permissions
}

// SetScanError makes any subsequent scan request fail with the given error
func (m *Radio) SetScanError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.scanErr = err
}

// QueueFrame appends a frame to the playback script
func (m *Radio) QueueFrame(delay time.Duration, adv scale.Advertisement) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.frames = append(m.frames, Frame{Delay: delay, Adv: adv})
}

// ScanCalls returns the number of scan requests received
func (m *Radio) ScanCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.scanCalls
}

// StopScanCalls returns the number of stop requests received
func (m *Radio) StopScanCalls() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.stopCalls
}

// PoweredOn returns the simulated adapter power state
func (m *Radio) PoweredOn() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.poweredOn
}

// RequestPermissions returns the simulated permission grant state
func (m *Radio) RequestPermissions() (scale.PermissionStatus, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.permissions, nil
}

// Scan replays the scripted frames in a goroutine and triggers the timeout
// callback once the scan window elapses (unless stopped before)
func (m *Radio) Scan(opts scale.ScanOptions, onAdv func(adv scale.Advertisement), onTimeout func()) error {

	m.mutex.Lock()
	m.scanCalls++
	if m.scanErr != nil {
		err := m.scanErr
		m.mutex.Unlock()
		return err
	}
	cancel := make(chan struct{})
	m.cancel = cancel
	frames := append([]Frame(nil), m.frames...)
	m.mutex.Unlock()

	go func() {
		for _, f := range frames {
			select {
			case <-cancel:
				return
			case <-time.After(f.Delay):
				onAdv(f.Adv)
			}
		}
	}()

	if opts.Timeout > 0 && onTimeout != nil {
		go func() {
			select {
			case <-cancel:
			case <-time.After(opts.Timeout):
				onTimeout()
			}
		}()
	}

	return nil
}

// StopScan aborts any ongoing playback, it is safe to call repeatedly
func (m *Radio) StopScan() error {

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.stopCalls++
	if m.cancel != nil {
		select {
		case <-m.cancel:
		default:
			close(m.cancel)
		}
	}

	return nil
}

////////////////////////////////////////////////////////////////////////////////

// WeightFrame builds an advertisement frame carrying the given weight in the
// scale's service data format
func WeightFrame(addr, serviceUUID string, weightKg float64, stable bool) scale.Advertisement {

	data := make([]byte, 13)
	if stable {
		data[0] |= 0x20
	}

	raw := uint16(math.Round(weightKg * 200.))
	data[len(data)-2] = byte(raw)
	data[len(data)-1] = byte(raw >> 8)

	return scale.Advertisement{
		Addr: addr,
		ServiceData: map[string][]byte{
			serviceUUID: data,
		},
	}
}
