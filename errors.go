package apkchannel

import (
	"errors"
	"fmt"
)

// ErrInvalidMarker is returned if the channel pair exists but its value is not a valid marker.
var ErrInvalidMarker = errors.New("invalid channel marker")

// IOError is returned when reading the input or writing the output fails for reasons that have nothing to do with the
// format of the APK.
type IOError struct {
	// Op describes what was being done, such as "open" or "read".
	Op string
	// Path is the input or output the operation was done on, if known.
	Path string
	Err  error
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s error: %v", e.Op, e.Err)
	}

	return fmt.Sprintf(`%s "%s" error: %v`, e.Op, e.Path, e.Err)
}

// classify returns err as-is if it is one of the format errors, wraps it in an IOError otherwise.
func classify(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotAZip), errors.Is(err, ErrMalformedZip), errors.Is(err, ErrSignatureNotFound), errors.Is(err, ErrInvalidMarker):
		return err
	default:
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			return err
		}

		return &IOError{Op: op, Path: path, Err: err}
	}
}
