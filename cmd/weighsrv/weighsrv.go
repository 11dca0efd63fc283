package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/fako1024/btweight/pkg/api"
	"github.com/fako1024/btweight/pkg/miscale"
	"github.com/fako1024/btweight/pkg/scale"
	"github.com/sirupsen/logrus"
)

type config struct {
	addr   string
	listen string
	debug  bool
}

var log = logrus.New()

func main() {

	// Parse command line options
	var cfg config

	flag.StringVar(&cfg.addr, "addr", "", "address of the scale (MAC on Linux, UUID on OS X)")
	flag.StringVar(&cfg.listen, "listen", ":8090", "endpoint to serve the session API on")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.Parse()

	if cfg.debug {
		log.SetLevel(logrus.DebugLevel)
	}

	s, err := miscale.New(
		miscale.WithTargetAddress(cfg.addr),
		miscale.WithLogger(scale.NewDefaultLogger(cfg.debug)),
	)
	if err != nil {
		log.Fatalf("Failed to initialize acquisition session: %s", err)
	}

	s.SetStatusHandler(func(status scale.SessionStatus) {
		log.Infof("Session status: %s", status.Text())
	})

	api.New(s, cfg.listen)
	log.Infof("Serving session API on %s", cfg.listen)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, os.Interrupt)

	<-sigChan
	log.Infof("Got signal, terminating session")
	if err := s.Close(); err != nil {
		log.Errorf("Failed to close session: %s", err)
	}
}
