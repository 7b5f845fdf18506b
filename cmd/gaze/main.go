// Gaze - track pupils and gaze direction from a camera, video or image
package main

import (
	"context"
	"flag"
	"log"
	"os"
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
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	glog.Init(cfg.LogLevel)

	a, err := app.New(cfg, glog.With("component", "gaze"))
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

// parseFlags returns the configuration from the environment overridden
// by command line flags.
func parseFlags(fs *flag.FlagSet, args []string) (app.Config, error) {
	cfg := app.DefaultConfig()
	cfg.LoadEnvConfig()

	debug := fs.Bool("debug", false, "Enable verbose per-frame logging")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error (overrides GAZE_LOG_LEVEL)")
	camera := fs.String("camera", cfg.Source, "Camera index (overrides GAZE_CAMERA)")
	video := fs.String("video", "", "Video file to read instead of the camera")
	img := fs.String("image", "", "Still image to analyze")
	preset := fs.String("preset", "", "Capture preset: default, 720p, 1080p")
	detector := fs.String("detector", cfg.Detector, "Face detector: yunet or pigo")
	faceModel := fs.String("face-model", cfg.FaceModel, "YuNet ONNX model (overrides GAZE_FACE_MODEL)")
	landmarkModel := fs.String("landmark-model", cfg.LandmarkModel, "68-point landmark ONNX model (overrides GAZE_LANDMARK_MODEL)")
	cascade := fs.String("pigo-cascade", cfg.PigoCascade, "pigo face cascade (overrides GAZE_PIGO_CASCADE)")
	equalize := fs.Bool("equalize", false, "Equalize the first frame's histogram")
	equalizeAll := fs.Bool("equalize-all", false, "Equalize every frame")
	flip := fs.Bool("flip", false, "Mirror frames horizontally")
	output := fs.String("output", "", "Write the annotated video (or image) here")
	fourcc := fs.String("fourcc", cfg.FourCC, "Codec for -output video")
	noWindow := fs.Bool("no-window", false, "Do not open a preview window")
	record := fs.String("record", cfg.Record, "Record samples to this sqlite database (overrides GAZE_DB)")
	focus := fs.String("focus", "", "Screen point x,y the subject looks at, stored with recorded samples")
	web := fs.String("web", "", "Serve the dashboard on this port")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Debug, cfg.LogLevel = *debug, *logLevel
	if *debug {
		cfg.LogLevel = "debug"
	}
	cfg.Source = *camera
	if *video != "" {
		cfg.Source = *video
	}
	cfg.Image, cfg.Preset = *img, *preset
	cfg.Detector, cfg.FaceModel, cfg.LandmarkModel, cfg.PigoCascade = *detector, *faceModel, *landmarkModel, *cascade
	cfg.Equalize, cfg.EqualizeEachFrame, cfg.Flip = *equalize, *equalizeAll, *flip
	cfg.Output, cfg.FourCC = *output, *fourcc
	cfg.ShowWindow = !*noWindow
	cfg.Record, cfg.WebPort = *record, *web
	if *focus != "" {
		p, err := app.ParseFocus(*focus)
		if err != nil {
			return cfg, err
		}
		cfg.Focus = &p
	}
	return cfg, nil
}
