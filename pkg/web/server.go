// Package web serves a live gaze dashboard: a JSON API, a websocket
// stream of gaze samples and a websocket stream of annotated previews.
//
// The server never touches the estimator. The owning loop publishes
// snapshots with Publish and PublishFrame and drains Commands between
// frames.
package web

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/hub"
)

//go:embed static
var staticFS embed.FS

// Command is a request from the dashboard to the owning loop.
type Command int

const (
	CommandResetCalibration Command = iota + 1
	CommandEqualize
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandResetCalibration:
		return "reset_calibration"
	case CommandEqualize:
		return "equalize"
	default:
		return "unknown"
	}
}

// ErrCommandQueueFull is returned when the owning loop is not draining
// commands fast enough.
var ErrCommandQueueFull = errors.New("web: command queue full")

const commandBuffer = 8

// CalibrationState is the dashboard view of one eye's calibration.
type CalibrationState struct {
	Side      string                   `json:"side"`
	Threshold int                      `json:"threshold"`
	Complete  bool                     `json:"complete"`
	Samples   []gaze.CalibrationSample `json:"samples"`
}

// SnapshotCalibration copies the calibration state. Call it from the
// goroutine that owns c.
func SnapshotCalibration(c *gaze.Calibration) []CalibrationState {
	if c == nil {
		return nil
	}
	out := make([]CalibrationState, 0, 2)
	for _, side := range []gaze.Side{gaze.LeftEye, gaze.RightEye} {
		out = append(out, CalibrationState{
			Side:      side.String(),
			Threshold: c.Threshold(side),
			Complete:  c.IsCompleteFor(side),
			Samples:   c.Samples(side),
		})
	}
	return out
}

// Status is the payload of GET /api/status.
type Status struct {
	Source        string      `json:"source"`
	Frames        int         `json:"frames"`
	Sample        gaze.Sample `json:"sample"`
	GazeClients   int         `json:"gaze_clients"`
	CameraClients int         `json:"camera_clients"`
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	mu          sync.RWMutex
	source      string
	frames      int
	latest      gaze.Sample
	calibration []CalibrationState

	gazeHub   *hub.Hub
	cameraHub *hub.Hub
	commands  chan Command

	// PreviewWidth bounds the width of camera previews.
	PreviewWidth int
	// PreviewQuality is the JPEG quality of camera previews.
	PreviewQuality int
}

// NewServer creates a dashboard server for the named source.
func NewServer(port, source string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		port:           port,
		source:         source,
		logger:         logger.With("component", "web"),
		gazeHub:        hub.New("gaze", logger),
		cameraHub:      hub.New("camera", logger),
		commands:       make(chan Command, commandBuffer),
		PreviewWidth:   DefaultPreviewWidth,
		PreviewQuality: DefaultPreviewQuality,
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-gaze dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/calibration", s.handleCalibration)
	api.Post("/calibration/reset", s.handleResetCalibration)
	api.Post("/equalize", s.handleEqualize)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/gaze", websocket.New(s.handleGazeWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s
}

// App exposes the fiber app for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs and serves on the configured port until ctx is
// done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.gazeHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown failed", "error", err)
		}
	}()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Publish stores the latest sample and calibration view and pushes the
// sample to gaze subscribers.
func (s *Server) Publish(sample gaze.Sample, calibration []CalibrationState) {
	s.mu.Lock()
	s.frames++
	s.latest = sample
	s.calibration = calibration
	s.mu.Unlock()

	if err := s.gazeHub.BroadcastJSON(sample); err != nil {
		s.logger.Warn("encode sample failed", "error", err)
	}
}

// PublishFrame encodes a preview of frame and pushes it to camera
// subscribers. Nothing is encoded while nobody watches.
func (s *Server) PublishFrame(frame gocv.Mat) error {
	if s.cameraHub.ClientCount() == 0 || frame.Empty() {
		return nil
	}
	img, err := frame.ToImage()
	if err != nil {
		return err
	}
	data, err := EncodePreview(img, s.PreviewWidth, s.PreviewQuality)
	if err != nil {
		return err
	}
	s.cameraHub.BroadcastBinary(data)
	return nil
}

// Commands returns the queue of dashboard requests.
func (s *Server) Commands() <-chan Command {
	return s.commands
}

func (s *Server) enqueue(cmd Command) error {
	select {
	case s.commands <- cmd:
		s.logger.Debug("command queued", "command", cmd)
		return nil
	default:
		return ErrCommandQueueFull
	}
}

func (s *Server) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Source:        s.source,
		Frames:        s.frames,
		Sample:        s.latest,
		GazeClients:   s.gazeHub.ClientCount(),
		CameraClients: s.cameraHub.ClientCount(),
	}
}
