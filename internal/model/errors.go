package model

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when quota enforcement is on but the
	// remote counter store is not configured. The engine fails closed
	// rather than silently granting unlimited reads.
	ErrStoreUnavailable = errors.New("counter store unavailable")

	// ErrCaptchaFailed is returned when a configured captcha rejects the
	// client token.
	ErrCaptchaFailed = errors.New("captcha verification failed")
)
