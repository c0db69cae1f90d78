package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burntcarrot/nvspad/config"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

func main() {
	// Parse flags.
	configPath := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "Server's network address (overrides the config file)")
	seedPath := flag.String("seed", "", "YAML file with the initial NVS contents (overrides the config file)")
	debug := flag.Bool("debug", false, "Enable debugging mode to show more verbose logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		color.Red("Config error, exiting: %s", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *seedPath != "" {
		cfg.Server.Seed = *seedPath
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug || cfg.Server.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Fill the store.
	seed := defaultSeed()
	if cfg.Server.Seed != "" {
		seed, err = loadSeed(cfg.Server.Seed)
		if err != nil {
			logger.Fatalf("failed to load seed: %v", err)
		}
	}
	s := newStore()
	if err := s.seed(seed); err != nil {
		logger.Fatalf("invalid seed: %v", err)
	}

	h := &handler{store: s, hub: newHub(logger), logger: logger}

	// Handle change messages.
	go h.hub.run()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	// Start the server.
	color.Green("Starting NVS server on %s", cfg.Server.Addr)
	color.Yellow("Endpoint: %s, change feed: /ws", nvsRoute)

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("error starting server, exiting: %v", err)
	}
}
