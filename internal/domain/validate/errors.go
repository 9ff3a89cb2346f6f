package validate

import "errors"

// Sentinel kinds for field-level checks.
var (
	ErrNotInteger = errors.New("not an integer")
	ErrNotTime    = errors.New("not a valid time")
)
