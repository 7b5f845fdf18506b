// Gaze server - headless gaze tracking with a live web dashboard
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-gaze/internal/config"
	glog "github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/app"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("❌ Loading .env: %v", err)
	}

	cfg := app.DefaultConfig()
	cfg.LoadEnvConfig()
	cfg.ShowWindow = false

	port := flag.String("port", config.WebPort(), "Dashboard port (overrides GAZE_WEB_PORT)")
	camera := flag.String("camera", cfg.Source, "Camera index or video file (overrides GAZE_CAMERA)")
	preset := flag.String("preset", "", "Capture preset: default, 720p, 1080p")
	detector := flag.String("detector", cfg.Detector, "Face detector: yunet or pigo")
	equalize := flag.Bool("equalize", false, "Equalize the first frame's histogram")
	flip := flag.Bool("flip", true, "Mirror frames horizontally")
	record := flag.String("record", cfg.Record, "Record samples to this sqlite database (overrides GAZE_DB)")
	debug := flag.Bool("debug", false, "Enable verbose per-frame logging")
	flag.Parse()

	cfg.WebPort, cfg.Source, cfg.Preset, cfg.Detector = *port, *camera, *preset, *detector
	cfg.Equalize, cfg.Flip, cfg.Record, cfg.Debug = *equalize, *flip, *record, *debug
	if *debug {
		cfg.LogLevel = "debug"
	}

	glog.Init(cfg.LogLevel)
	logger := glog.With("component", "gaze-server")

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if err := a.Init(); err != nil {
		a.Shutdown()
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("dashboard listening", "url", "http://localhost:"+cfg.WebPort)
	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}
