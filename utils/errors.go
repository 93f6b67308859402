package utils

import (
	"github.com/pkg/errors"
)

// NewOutOfRangeError is used when an index falls outside [0, size).
func NewOutOfRangeError(what string, index, size int) error {
	return errors.Errorf("%s index %d out of range [0, %d)", what, index, size)
}
