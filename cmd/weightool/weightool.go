package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/fako1024/btweight/pkg/miscale"
	"github.com/fako1024/btweight/pkg/mock"
	"github.com/fako1024/btweight/pkg/scale"
	"github.com/sirupsen/logrus"
)

const mockDeviceAddr = "C8:47:8C:11:22:33"

type config struct {
	addr   string
	window time.Duration

	useMock bool
	debug   bool
}

var log = logrus.New()

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {

	// Parse command line options
	var cfg config

	flag.StringVar(&cfg.addr, "addr", "", "address of the scale (MAC on Linux, UUID on OS X)")
	flag.DurationVar(&cfg.window, "window", 5*time.Second, "scan window / hard timeout")

	flag.BoolVar(&cfg.useMock, "mock", false, "use a mock radio emitting synthetic readings")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.Parse()

	if cfg.debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if cfg.useMock && cfg.addr == "" {
		cfg.addr = mockDeviceAddr
	}

	options := []func(*miscale.Session){
		miscale.WithTargetAddress(cfg.addr),
		miscale.WithScanWindow(cfg.window),
		miscale.WithLogger(scale.NewDefaultLogger(cfg.debug)),
	}
	if cfg.useMock {
		options = append(options, miscale.WithRadio(newMockRadio(cfg.addr)))
	}

	s, err := miscale.New(options...)
	if err != nil {
		return fmt.Errorf("failed to initialize acquisition session: %s", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = cerr
			return
		}
	}()

	statusChan := make(chan scale.SessionStatus, 64)
	s.SetStatusChannel(statusChan)

	if err := s.Start(); err != nil {
		return err
	}

	for status := range statusChan {
		log.Debugf("session status: %s", status.Text())
		if !status.State.IsTerminal() {
			continue
		}

		switch status.State {
		case scale.StateCompleted:
			fmt.Printf("%s kg (stable: %v, took %v)\n",
				status.WeightDisplay(), status.LastReading.Stable, s.Elapsed().Round(time.Millisecond))
			return nil
		case scale.StateTimedOut:
			return fmt.Errorf("no weight detected within %v", cfg.window)
		default:
			return status.Error
		}
	}

	return nil
}

// newMockRadio scripts a short settle phase followed by a stable reading
func newMockRadio(addr string) *mock.Radio {
	r := mock.New()

	r.QueueFrame(300*time.Millisecond, mock.WeightFrame(addr, miscale.WeightServiceUUID, 72.15, false))
	r.QueueFrame(400*time.Millisecond, mock.WeightFrame(addr, miscale.WeightServiceUUID, 72.4, false))
	r.QueueFrame(500*time.Millisecond, mock.WeightFrame(addr, miscale.WeightServiceUUID, 72.35, true))

	return r
}
