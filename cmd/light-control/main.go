// Light control - dim the screen while nobody is looking at it
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

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

	camera := flag.String("camera", cfg.Source, "Camera index (overrides GAZE_CAMERA)")
	video := flag.String("video", "", "Video file to read instead of the camera")
	equalize := flag.Bool("equalize", false, "Equalize the first frame's histogram")
	flip := flag.Bool("flip", false, "Mirror frames horizontally")
	show := flag.Bool("show", false, "Show the annotated preview")
	backlight := flag.String("backlight", "", "sysfs backlight device (default: first found)")
	dryRun := flag.Bool("dry-run", false, "Log brightness changes without applying them")
	interval := flag.Duration("interval", time.Second, "Time between frames")
	debug := flag.Bool("debug", false, "Enable verbose per-frame logging")
	flag.Parse()

	cfg.Source = *camera
	if *video != "" {
		cfg.Source = *video
	}
	cfg.Equalize, cfg.Flip, cfg.ShowWindow = *equalize, *flip, *show
	cfg.Brightness, cfg.Backlight, cfg.DryRun = true, *backlight, *dryRun
	cfg.FrameDelay, cfg.Debug = *interval, *debug
	if *debug {
		cfg.LogLevel = "debug"
	}

	glog.Init(cfg.LogLevel)

	a, err := app.New(cfg, glog.With("component", "light-control"))
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

	if err := a.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}
