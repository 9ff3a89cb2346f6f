package authz

import "errors"

// Sentinel kinds for authorization decisions.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)
