package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-gaze/pkg/hub"
)

// handleStatus returns the latest sample and counters.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleCalibration returns the per-eye calibration view.
func (s *Server) handleCalibration(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.calibration == nil {
		return c.JSON([]CalibrationState{})
	}
	return c.JSON(s.calibration)
}

func (s *Server) handleResetCalibration(c *fiber.Ctx) error {
	return s.accept(c, CommandResetCalibration)
}

func (s *Server) handleEqualize(c *fiber.Ctx) error {
	return s.accept(c, CommandEqualize)
}

func (s *Server) accept(c *fiber.Ctx, cmd Command) error {
	if err := s.enqueue(cmd); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"command": cmd.String(),
		"status":  "queued",
	})
}

// handleGazeWS streams samples, starting with the latest one.
func (s *Server) handleGazeWS(c *websocket.Conn) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()

	data, err := json.Marshal(latest)
	if err == nil {
		err = c.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		c.Close()
		return
	}

	hub.NewClient(s.gazeHub, c).Run()
}

// handleCameraWS streams JPEG previews.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
