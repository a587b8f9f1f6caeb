package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

const (
	attemptWindow    = 15 * time.Minute
	attemptThreshold = 5
	// A counter that races past this value inside one window looks like a
	// script, not a typo: escalate to the long block.
	escalationThreshold = 10
	shortBlock          = 30 * time.Minute
	longBlock           = 24 * time.Hour
	requestCooldown     = 30 * time.Second
)

// RateLimiter tracks failed verification attempts per claimed identity,
// escalates to temporary blocks, enforces issuance cooldowns, and stores
// single-use codes. Abuse states are normal results, never errors; only
// store failures propagate.
type RateLimiter struct {
	store  model.KV
	logger *logger.Logger
}

// NewRateLimiter creates a RateLimiter on the given store.
func NewRateLimiter(store model.KV, logger *logger.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: logger}
}

// NormalizeEmail canonicalizes a claimed identity for keying.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func attemptsKey(email string) string { return "otp:attempts:" + email }
func blockKey(email string) string    { return "otp:block:" + email }
func cooldownKey(email string) string { return "otp:cooldown:" + email }
func codeKey(email string) string     { return "otp:code:" + email }

// AllowRequest enforces the flat cooldown between successive code
// issuance requests. On allow it immediately arms the cooldown for the
// next call.
func (r *RateLimiter) AllowRequest(ctx context.Context, email string) (model.RequestDecision, error) {
	email = NormalizeEmail(email)

	ttl, err := r.store.TTL(ctx, cooldownKey(email))
	if err != nil {
		return model.RequestDecision{}, fmt.Errorf("failed to read cooldown: %w", err)
	}
	if ttl > 0 {
		return model.RequestDecision{Allowed: false, NextAttemptIn: ttl}, nil
	}

	if err := r.store.Set(ctx, cooldownKey(email), "1", requestCooldown); err != nil {
		return model.RequestDecision{}, fmt.Errorf("failed to arm cooldown: %w", err)
	}

	return model.RequestDecision{Allowed: true}, nil
}

// Info returns a read-only snapshot of the identity's lockout state.
func (r *RateLimiter) Info(ctx context.Context, email string) (model.RateLimitInfo, error) {
	email = NormalizeEmail(email)

	info := model.RateLimitInfo{}

	raw, ok, err := r.store.Get(ctx, attemptsKey(email))
	if err != nil {
		return model.RateLimitInfo{}, fmt.Errorf("failed to read attempts: %w", err)
	}
	if ok {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.RateLimitInfo{}, fmt.Errorf("failed to parse attempts: %w", err)
		}
		info.Attempts = n
	}

	blockTTL, err := r.store.TTL(ctx, blockKey(email))
	if err != nil {
		return model.RateLimitInfo{}, fmt.Errorf("failed to read block: %w", err)
	}
	if blockTTL > 0 {
		info.Blocked = true
		info.BlockExpiresIn = blockTTL
	}

	cooldownTTL, err := r.store.TTL(ctx, cooldownKey(email))
	if err != nil {
		return model.RateLimitInfo{}, fmt.Errorf("failed to read cooldown: %w", err)
	}
	if cooldownTTL > 0 {
		info.NextAttemptIn = cooldownTTL
	}

	return info, nil
}

// RecordFailure increments the attempt counter and applies a block when
// the threshold is reached. The window TTL is set only on the 0->1
// transition so later failures do not extend it. Escalation is decided
// from the total failure count within the window: past
// escalationThreshold the block is 24h instead of 30m.
func (r *RateLimiter) RecordFailure(ctx context.Context, email string) (model.FailureState, error) {
	email = NormalizeEmail(email)

	attempts, err := r.store.Incr(ctx, attemptsKey(email))
	if err != nil {
		return model.FailureState{}, fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts == 1 {
		if _, err := r.store.Expire(ctx, attemptsKey(email), attemptWindow); err != nil {
			return model.FailureState{}, fmt.Errorf("failed to set attempts window: %w", err)
		}
	}

	if attempts < attemptThreshold {
		return model.FailureState{Attempts: attempts}, nil
	}

	blockFor := shortBlock
	if attempts > escalationThreshold {
		blockFor = longBlock
	}
	if err := r.store.Set(ctx, blockKey(email), "1", blockFor); err != nil {
		return model.FailureState{}, fmt.Errorf("failed to set block: %w", err)
	}

	r.logger.Info("RateLimiter: identity blocked",
		"identity", email,
		"attempts", attempts,
		"block_seconds", int(blockFor.Seconds()))

	return model.FailureState{Attempts: attempts, Blocked: true, BlockExpiresIn: blockFor}, nil
}

// Reset clears the attempt counter and block marker. Called on any
// successful verification.
func (r *RateLimiter) Reset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	if _, err := r.store.Del(ctx, attemptsKey(email)); err != nil {
		return fmt.Errorf("failed to delete attempts: %w", err)
	}
	if _, err := r.store.Del(ctx, blockKey(email)); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// StoreCode stores the outstanding one-time code for the identity,
// overwriting any previous one.
func (r *RateLimiter) StoreCode(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)

	if err := r.store.Set(ctx, codeKey(email), code, model.OTPCodeTTL); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

// VerifyCode compares the candidate against the stored code. Absent or
// expired codes fail closed. The comparison runs over the full length of
// both values so timing does not reveal how many leading digits matched;
// ConstantTimeCompare rejects length mismatches outright, which leaks
// only the (fixed, public) code length.
func (r *RateLimiter) VerifyCode(ctx context.Context, email, candidate string) (bool, error) {
	email = NormalizeEmail(email)

	stored, ok, err := r.store.Get(ctx, codeKey(email))
	if err != nil {
		return false, fmt.Errorf("failed to read code: %w", err)
	}
	if !ok {
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1, nil
}

// DeleteCode removes the outstanding code after successful verification.
func (r *RateLimiter) DeleteCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	if _, err := r.store.Del(ctx, codeKey(email)); err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}
