package common

import "errors"

var (
	// Credential lifecycle errors. The supervisor collapses all three into the
	// Expired state; they are only surfaced to logs.
	ErrCredentialAbsent    = errors.New("credential absent")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrAlreadyExpired      = errors.New("credential already expired")

	// Lifecycle errors for long-lived components.
	ErrStoreClosed      = errors.New("store closed")
	ErrSupervisorClosed = errors.New("supervisor closed")
)
