package miscale

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fako1024/btweight/pkg/radio"
	"github.com/fako1024/btweight/pkg/scale"
	"github.com/fatih/stopwatch"
	"github.com/google/uuid"
)

const (

	// WeightServiceUUID denotes the weight scale service broadcast by the device
	WeightServiceUUID = "0000181d-0000-1000-8000-00805f9b34fb"

	defaultScanWindow     = 5 * time.Second
	defaultCountdownTick  = time.Second
	defaultCountdownStart = 5
)

// Session denotes a weight acquisition session for a Mi body scale. It owns
// the countdown / timeout timers, filters and decodes advertisement frames
// delivered by the radio and determines when a reading is final
type Session struct {
	status      scale.SessionStatus
	lastReading *scale.Reading

	targetAddr  string
	serviceUUID string

	scanWindow     time.Duration
	countdownTick  time.Duration
	countdownStart int

	watch *stopwatch.Stopwatch
	gen   uint64
	done  chan struct{}

	btRadio scale.Radio
	gate    scale.PermissionGate

	statusHandler func(status scale.SessionStatus)
	statusChan    chan scale.SessionStatus

	logger scale.Logger

	mutex sync.Mutex
}

// New instantiates a new Session struct, executing functional options, if any
func New(options ...func(*Session)) (*Session, error) {

	// Initialize a new acquisition session with default parameters
	s := &Session{
		serviceUUID:    WeightServiceUUID,
		scanWindow:     defaultScanWindow,
		countdownTick:  defaultCountdownTick,
		countdownStart: defaultCountdownStart,
		logger:         &scale.NullLogger{},
	}

	// Execute functional options (if any), see options.go for implementation
	for _, option := range options {
		option(s)
	}

	if s.targetAddr == "" {
		return nil, scale.ErrNoTargetAddress
	}

	// Normalize the weight service UUID filter
	id, err := uuid.Parse(s.serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid weight service UUID `%s`: %w", s.serviceUUID, err)
	}
	s.serviceUUID = strings.ToLower(id.String())

	// Initialize a new gatt-backed radio (if not provided as option)
	if s.btRadio == nil {
		r, err := radio.New(radio.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.btRadio = r
	}

	// Unless overridden, the radio acts as permission gate as well
	if s.gate == nil {
		gate, ok := s.btRadio.(scale.PermissionGate)
		if !ok {
			return nil, fmt.Errorf("radio does not provide a permission gate")
		}
		s.gate = gate
	}

	return s, nil
}

// SetStatusHandler defines a handler function that is called upon status change.
// The handler is invoked from within the session and must not call back into it
func (s *Session) SetStatusHandler(fn func(status scale.SessionStatus)) {
	s.statusHandler = fn
}

// SetStatusChannel defines a channel that receives status changes (non-blocking,
// changes are dropped if the channel is full)
func (s *Session) SetStatusChannel(ch chan scale.SessionStatus) {
	s.statusChan = ch
}

// Status returns the current session status
func (s *Session) Status() scale.SessionStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.status
}

// Elapsed returns the time spent in the current / last acquisition
func (s *Session) Elapsed() time.Duration {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.watch != nil {
		return s.watch.ElapsedTime()
	}

	return 0
}

// Start begins a new acquisition. It is only valid from idle or a terminal
// state, a racing duplicate start is rejected without any state change. All
// failures are reflected in the session status in addition to being returned
func (s *Session) Start() error {

	s.mutex.Lock()
	if s.status.State == scale.StateAwaitingPermission || s.status.State == scale.StateScanning {
		s.mutex.Unlock()
		return scale.ErrSessionActive
	}

	s.gen++
	gen := s.gen
	s.lastReading = nil
	s.done = make(chan struct{})
	done := s.done
	s.setStatus(scale.SessionStatus{State: scale.StateAwaitingPermission})
	s.mutex.Unlock()

	// Verify the adapter is powered on and all required permissions are
	// granted before any scan is attempted
	if !s.gate.PoweredOn() {
		return s.fail(gen, scale.ErrRadioOff)
	}
	perms, err := s.gate.RequestPermissions()
	if err != nil {
		return s.fail(gen, fmt.Errorf("%w: %s", scale.ErrPermissionDenied, err))
	}
	if !perms.Granted() {
		return s.fail(gen, scale.ErrPermissionDenied)
	}

	s.mutex.Lock()
	if s.gen != gen {

		// Session was cancelled while the permission check was in flight
		s.mutex.Unlock()
		return nil
	}
	if s.watch == nil {
		s.watch = stopwatch.Start(0)
	} else {
		s.watch.Reset()
		s.watch.Start(0)
	}
	s.setStatus(scale.SessionStatus{State: scale.StateScanning, Countdown: s.countdownStart})
	s.mutex.Unlock()

	go s.runCountdown(gen, done)

	scanErr := s.btRadio.Scan(scale.ScanOptions{
		Timeout:    s.scanWindow,
		TargetAddr: s.targetAddr,
	},
		func(adv scale.Advertisement) { s.handleAdvertisement(gen, adv) },
		func() { s.handleScanTimeout(gen) },
	)
	if scanErr != nil {
		return s.fail(gen, fmt.Errorf("%w: %s", scale.ErrScanStart, scanErr))
	}

	s.logger.Debugf("scanning for scale `%s` (window: %v)", s.targetAddr, s.scanWindow)

	return nil
}

// Cancel aborts any ongoing acquisition and resets the session to idle. It is
// idempotent and safe to call in any state, including concurrently with
// in-flight advertisement or timeout events
func (s *Session) Cancel() {

	s.mutex.Lock()
	s.gen++
	s.stopTimers()
	s.lastReading = nil
	s.setStatus(scale.SessionStatus{State: scale.StateIdle})
	s.mutex.Unlock()

	if err := s.btRadio.StopScan(); err != nil {
		s.logger.Warnf("failed to stop scanning on cancel: %s", err)
	}
}

// Close terminates the session and releases the radio
func (s *Session) Close() error {
	s.Cancel()

	return s.btRadio.StopScan()
}

////////////////////////////////////////////////////////////////////////////////

func (s *Session) handleAdvertisement(gen uint64, adv scale.Advertisement) {

	s.mutex.Lock()

	// Guard against late frames after cancellation / termination
	if s.gen != gen || s.status.State != scale.StateScanning {
		s.mutex.Unlock()
		return
	}

	// Filter by target address and weight service
	if !strings.EqualFold(adv.Addr, s.targetAddr) {
		s.mutex.Unlock()
		return
	}
	data, ok := adv.ServiceData[s.serviceUUID]
	if !ok {
		s.mutex.Unlock()
		return
	}

	reading, err := Decode(data)
	if err != nil {

		// Malformed intermediate frames are expected while the scale settles
		s.logger.Debugf("ignoring malformed frame from `%s`: %s", adv.Addr, err)
		s.mutex.Unlock()
		return
	}
	reading.TimeStamp = time.Now()
	s.lastReading = &reading

	s.logger.Debugf("received reading %s kg (stable: %v)", reading.WeightString(), reading.Stable)

	if reading.Stable {

		// Terminate early, no point in keeping the user waiting for the
		// remainder of the scan window
		s.stopTimers()
		s.setStatus(scale.SessionStatus{State: scale.StateCompleted, LastReading: s.lastReading})
		s.mutex.Unlock()

		if err := s.btRadio.StopScan(); err != nil {
			s.logger.Warnf("failed to stop scanning after stable reading: %s", err)
		}
		return
	}

	s.setStatus(scale.SessionStatus{
		State:       scale.StateScanning,
		Countdown:   s.status.Countdown,
		LastReading: s.lastReading,
	})
	s.mutex.Unlock()
}

func (s *Session) handleScanTimeout(gen uint64) {

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// No-op if the session already completed via early stable exit
	if s.gen != gen || s.status.State != scale.StateScanning {
		return
	}

	s.stopTimers()

	if s.lastReading != nil {

		// Best-effort completion: the window elapsed without the scale ever
		// flagging stability, keep the last seen weight regardless
		s.setStatus(scale.SessionStatus{State: scale.StateCompleted, LastReading: s.lastReading})
		return
	}

	s.setStatus(scale.SessionStatus{State: scale.StateTimedOut})
}

// runCountdown decrements the visible countdown once per tick while scanning.
// Reaching zero does not terminate the session, the hard scan timeout does
func (s *Session) runCountdown(gen uint64, done chan struct{}) {

	ticker := time.NewTicker(s.countdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mutex.Lock()
			if s.gen != gen || s.status.State != scale.StateScanning {
				s.mutex.Unlock()
				return
			}
			if s.status.Countdown > 0 {
				s.setStatus(scale.SessionStatus{
					State:       scale.StateScanning,
					Countdown:   s.status.Countdown - 1,
					LastReading: s.lastReading,
				})
			}
			s.mutex.Unlock()
		}
	}
}

func (s *Session) fail(gen uint64, err error) error {

	s.mutex.Lock()
	if s.gen == gen && !s.status.State.IsTerminal() {
		s.stopTimers()
		s.setStatus(scale.SessionStatus{State: scale.StateFailed, Error: err})
	}
	s.mutex.Unlock()

	return err
}

// stopTimers halts the stopwatch and signals the countdown loop to exit
// (must be called with the mutex held)
func (s *Session) stopTimers() {
	if s.watch != nil {
		s.watch.Stop()
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			close(s.done)
		}
	}
}

// setStatus updates the session status and notifies handler / channel, if any
// (must be called with the mutex held)
func (s *Session) setStatus(status scale.SessionStatus) {
	s.status = status

	// Call handler function, if any
	if s.statusHandler != nil {
		s.statusHandler(status)
	}

	// Put status change on channel, if any
	if s.statusChan != nil {
		select {
		case s.statusChan <- status:
		default:
		}
	}
}
