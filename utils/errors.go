// Package utils contains small helpers shared by the player packages.
package utils

import (
	"fmt"

	"github.com/pkg/errors"
)

// NewConfigValidationFieldRequiredError is used when a required config field is empty.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}

// NewConfigValidationError wraps a config problem with the path of the offending section.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// FileNotFoundError is returned when a file the player needs to read does not exist.
type FileNotFoundError struct {
	// Role describes what the file is for, e.g. "video source" or "reference image".
	Role string
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Role, e.Path)
}

// IsFileNotFound reports whether err is, or wraps, a *FileNotFoundError.
func IsFileNotFound(err error) bool {
	var fnf *FileNotFoundError
	return errors.As(err, &fnf)
}
