package model

import "errors"

// ErrInvalidValue is returned when a textual value cannot be parsed.
var ErrInvalidValue = errors.New("invalid value")
