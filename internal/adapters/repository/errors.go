package repository

import "errors"

// Sentinel kinds for store lookups.
var (
	ErrResultNotFound = errors.New("result not found")
	ErrUserNotFound   = errors.New("user not found")
)
