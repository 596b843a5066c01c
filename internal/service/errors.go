package service

import "errors"

// Lifecycle and authorization errors. Controllers map these onto HTTP status
// codes with errors.Is; services wrap them with context via fmt.Errorf and %w.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAlreadyCompleted guards the one-way COMPLETED transition: re-init,
	// save-after-submit and double-submit all surface it. Clients treat it as
	// "stop sending, show the submitted state", not as a hard failure.
	ErrAlreadyCompleted = errors.New("attempt already completed")
	ErrValidation       = errors.New("validation failed")
)
