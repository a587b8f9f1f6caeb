package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

const otpCodeLength = 6

// Auth orchestrates passwordless sign-in: code issuance gated by captcha
// and cooldown, verification gated by the lockout engine, and session
// issuance on success. Responses never reveal whether an email is
// registered; the account is created lazily at first successful
// verification.
type Auth struct {
	users   model.UserStore
	limiter *RateLimiter
	email   model.EmailSender
	captcha model.CaptchaVerifier
	tokens  *TokenService
	logger  *logger.Logger
}

// NewAuth creates the auth service.
func NewAuth(
	users model.UserStore,
	limiter *RateLimiter,
	email model.EmailSender,
	captcha model.CaptchaVerifier,
	tokens *TokenService,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		users:   users,
		limiter: limiter,
		email:   email,
		captcha: captcha,
		tokens:  tokens,
		logger:  logger,
	}
}

// RequestCode issues a one-time code to the claimed email. The outcome
// is identical whether or not the address belongs to a known user.
func (a *Auth) RequestCode(ctx context.Context, email, captchaToken, remoteIP string) (model.RequestDecision, error) {
	email = NormalizeEmail(email)

	a.logger.Debug("Auth service: processing code request",
		"identity", email)

	passed, err := a.captcha.Validate(ctx, captchaToken, remoteIP)
	if err != nil {
		a.logger.Error("Auth service: captcha validation error",
			"identity", email,
			"error", err.Error())
		return model.RequestDecision{}, fmt.Errorf("failed to validate captcha: %w", err)
	}
	if !passed {
		return model.RequestDecision{}, model.ErrCaptchaFailed
	}

	decision, err := a.limiter.AllowRequest(ctx, email)
	if err != nil {
		return model.RequestDecision{}, fmt.Errorf("failed to check request cooldown: %w", err)
	}
	if !decision.Allowed {
		return decision, nil
	}

	code, err := generateCode(otpCodeLength)
	if err != nil {
		return model.RequestDecision{}, fmt.Errorf("failed to generate code: %w", err)
	}

	if err := a.limiter.StoreCode(ctx, email, code); err != nil {
		return model.RequestDecision{}, fmt.Errorf("failed to store code: %w", err)
	}

	msg := model.EmailMessage{
		To:      email,
		Subject: "Your sign-in code",
		Text:    fmt.Sprintf("Your sign-in code is %s. It expires in %d minutes.", code, int(model.OTPCodeTTL.Minutes())),
		HTML:    fmt.Sprintf("<p>Your sign-in code is <strong>%s</strong>. It expires in %d minutes.</p>", code, int(model.OTPCodeTTL.Minutes())),
	}
	if err := a.email.Send(ctx, msg); err != nil {
		a.logger.Error("Auth service: failed to send code email",
			"identity", email,
			"error", err.Error())
		return model.RequestDecision{}, fmt.Errorf("failed to send code: %w", err)
	}

	a.logger.Info("Auth service: code issued",
		"identity", email)

	return model.RequestDecision{Allowed: true}, nil
}

// Verify checks a candidate code. Lockout and mismatch are structured
// results; the mismatch path is deliberately generic so it reveals
// nothing beyond the attempt counter itself.
func (a *Auth) Verify(ctx context.Context, email, code string) (model.AuthResult, error) {
	email = NormalizeEmail(email)

	a.logger.Debug("Auth service: processing verification",
		"identity", email)

	info, err := a.limiter.Info(ctx, email)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to read rate limit info: %w", err)
	}
	if info.Blocked {
		return model.AuthResult{Blocked: true, BlockExpiresIn: info.BlockExpiresIn}, nil
	}

	ok, err := a.limiter.VerifyCode(ctx, email, code)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		state, err := a.limiter.RecordFailure(ctx, email)
		if err != nil {
			return model.AuthResult{}, fmt.Errorf("failed to record failure: %w", err)
		}
		return model.AuthResult{Blocked: state.Blocked, BlockExpiresIn: state.BlockExpiresIn}, nil
	}

	if err := a.limiter.Reset(ctx, email); err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to reset attempts: %w", err)
	}
	if err := a.limiter.DeleteCode(ctx, email); err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to delete code: %w", err)
	}

	user, err := a.ensureUser(ctx, email)
	if err != nil {
		return model.AuthResult{}, err
	}

	access, refresh, err := a.tokens.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: verification succeeded",
		"identity", email,
		"user_id", user.ID)

	return model.AuthResult{Success: true, AccessToken: access, RefreshToken: refresh}, nil
}

// ensureUser returns the account for a verified email, creating a free
// account on first sign-in and marking the email verified either way.
func (a *Auth) ensureUser(ctx context.Context, email string) (model.User, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		now := time.Now()
		user = model.User{
			ID:            uuid.New(),
			Email:         email,
			Role:          model.RoleFreeUser,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		created, err := a.users.Create(ctx, user)
		if err != nil {
			return model.User{}, fmt.Errorf("failed to create user: %w", err)
		}
		return created, nil
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !user.EmailVerified {
		if err := a.users.SetEmailVerified(ctx, user.ID, true); err != nil {
			return model.User{}, fmt.Errorf("failed to mark email verified: %w", err)
		}
		user.EmailVerified = true
	}

	return user, nil
}

// generateCode produces n uniformly random decimal digits.
func generateCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}
