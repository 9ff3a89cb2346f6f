package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadPayload = errors.New("request body is not valid JSON")
)
