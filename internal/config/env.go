// Package config provides configuration helpers for go-gaze commands.
package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Default asset locations and service settings.
const (
	DefaultFaceModel     = "models/face_detection_yunet.onnx"
	DefaultLandmarkModel = "models/face_landmarks_68.onnx"
	DefaultPigoCascade   = "models/facefinder"
	DefaultCamera        = "0"
	DefaultWebPort       = "8090"
	DefaultLogLevel      = "info"
)

// LoadEnv loads variables from the given .env files (".env" when none are
// given). Variables already present in the environment win. A missing file
// is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// FaceModel returns the YuNet model path from GAZE_FACE_MODEL.
func FaceModel() string {
	return envOr("GAZE_FACE_MODEL", DefaultFaceModel)
}

// LandmarkModel returns the 68-point landmark model path from GAZE_LANDMARK_MODEL.
func LandmarkModel() string {
	return envOr("GAZE_LANDMARK_MODEL", DefaultLandmarkModel)
}

// PigoCascade returns the pigo face cascade path from GAZE_PIGO_CASCADE.
func PigoCascade() string {
	return envOr("GAZE_PIGO_CASCADE", DefaultPigoCascade)
}

// Camera returns the capture device (index or file) from GAZE_CAMERA.
func Camera() string {
	return envOr("GAZE_CAMERA", DefaultCamera)
}

// WebPort returns the dashboard port from GAZE_WEB_PORT.
func WebPort() string {
	return envOr("GAZE_WEB_PORT", DefaultWebPort)
}

// Database returns the recorder database path from GAZE_DB.
// Empty means recording is disabled.
func Database() string {
	return os.Getenv("GAZE_DB")
}

// LogLevel returns the log level from GAZE_LOG_LEVEL.
func LogLevel() string {
	return envOr("GAZE_LOG_LEVEL", DefaultLogLevel)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
