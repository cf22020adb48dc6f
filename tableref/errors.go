package tableref

import "errors"

var (
	// ErrInvalidName is returned when an object child gets an empty name.
	ErrInvalidName = errors.New("tableref: invalid name")

	// ErrInvalidDimension is returned when an array child breaks the dimension rules.
	ErrInvalidDimension = errors.New("tableref: invalid array dimension")

	// ErrInvalidToken is returned when an encoded token cannot be decoded.
	ErrInvalidToken = errors.New("tableref: invalid token")
)
