package model

import "errors"

// Error taxonomy shared by all domain packages. The HTTP layer maps these to
// status codes; everything else is treated as internal.
var (
	// ErrNotFound covers both "absent" and "not owned by the caller" so the
	// API never leaks whether another user's form exists.
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)
