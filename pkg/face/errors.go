package face

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrModelNotFound is returned when a model or cascade file is missing.
	ErrModelNotFound = errors.New("face: model file not found")

	// ErrModelInvalid is returned when a model file cannot be loaded.
	ErrModelInvalid = errors.New("face: model could not be loaded")

	// ErrEmptyImage is returned when detection runs on an empty frame.
	ErrEmptyImage = errors.New("face: empty image")

	// ErrShortOutput is returned when the landmark model yields fewer
	// values than 68 points need.
	ErrShortOutput = errors.New("face: landmark output too short")
)

// ModelError wraps a model loading failure with the offending path.
type ModelError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("face: model %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}
