package localtime

import "errors"

var (
	// ErrConfig is returned when timezone rules are missing or malformed.
	ErrConfig = errors.New("timezone configuration error")

	// ErrInvalidValue is returned when a date or time of day is out of range.
	ErrInvalidValue = errors.New("invalid local time value")
)
