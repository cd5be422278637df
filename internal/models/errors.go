package models

import "errors"

// Error taxonomy shared by repositories, services and handlers.
// Handlers map these to status codes with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrUpstream marks a failure of an external dependency (Reddit, identity provider, store),
	// as opposed to a programming error.
	ErrUpstream = errors.New("upstream failure")
)
