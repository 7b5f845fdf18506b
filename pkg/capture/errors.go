package capture

import "errors"

var (
	// ErrOpenFailed is returned when a camera, file or image cannot be opened.
	ErrOpenFailed = errors.New("capture: open failed")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("capture: invalid config")

	// ErrUnknownFourCC is returned for an unsupported writer codec.
	ErrUnknownFourCC = errors.New("capture: unknown fourcc")
)
