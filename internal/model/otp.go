package model

import "time"

// OTPCodeTTL is the validity window of an issued one-time code.
const OTPCodeTTL = 5 * time.Minute

// RequestDecision is the outcome of an issuance cooldown check.
type RequestDecision struct {
	Allowed       bool
	NextAttemptIn time.Duration
}

// RateLimitInfo is a read-only snapshot of an identity's lockout state.
type RateLimitInfo struct {
	Attempts       int64
	Blocked        bool
	BlockExpiresIn time.Duration
	NextAttemptIn  time.Duration
}

// FailureState is returned after recording a failed verification.
type FailureState struct {
	Attempts       int64
	Blocked        bool
	BlockExpiresIn time.Duration
}

// AuthResult is the structured outcome of an OTP verification. Failure
// and lockout are expected terminal states, not errors.
type AuthResult struct {
	Success        bool
	AccessToken    string
	RefreshToken   string
	Blocked        bool
	BlockExpiresIn time.Duration
}
