package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
)

// AuthService defines passwordless sign-in operations.
type AuthService interface {
	RequestCode(ctx context.Context, email, captchaToken, remoteIP string) (model.RequestDecision, error)
	Verify(ctx context.Context, email, code string) (model.AuthResult, error)
}

// TokenService defines token refresh and revoke operations.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	RevokeByToken(ctx context.Context, refreshToken string) error
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService  AuthService
	tokenService TokenService
	logger       *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, tokenService TokenService, logger *logger.Logger) *Auth {
	return &Auth{
		authService:  authService,
		tokenService: tokenService,
		logger:       logger,
	}
}

type requestCodeRequest struct {
	Email        string `json:"email"`
	CaptchaToken string `json:"captcha_token"`
}

type requestCodeResponse struct {
	Requested    bool  `json:"requested"`
	RetryAfterIn int64 `json:"retry_after_seconds,omitempty"`
}

// RequestCode issues a one-time sign-in code to the supplied email. The
// response does not reveal whether the address belongs to an account.
func (h *Auth) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
		return
	}

	decision, err := h.authService.RequestCode(r.Context(), req.Email, req.CaptchaToken, r.RemoteAddr)
	if err != nil {
		h.logger.Error("Auth handler: code request failed",
			"error", err.Error())
		writeError(w, err)
		return
	}

	if !decision.Allowed {
		writeJSON(w, http.StatusTooManyRequests, requestCodeResponse{
			Requested:    false,
			RetryAfterIn: int64(decision.NextAttemptIn.Seconds()),
		})
		return
	}

	h.logger.Info("Auth handler: code request accepted")

	writeJSON(w, http.StatusAccepted, requestCodeResponse{Requested: true})
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type verifyResponse struct {
	AccessToken    string `json:"access_token,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	Blocked        bool   `json:"blocked,omitempty"`
	BlockExpiresIn int64  `json:"block_expires_seconds,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Verify exchanges a one-time code for a session. Mismatches and
// lockouts are structured refusals, not server errors.
func (h *Auth) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and code are required"})
		return
	}

	result, err := h.authService.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		h.logger.Error("Auth handler: verification failed",
			"error", err.Error())
		writeError(w, err)
		return
	}

	if result.Blocked {
		writeJSON(w, http.StatusTooManyRequests, verifyResponse{
			Blocked:        true,
			BlockExpiresIn: int64(result.BlockExpiresIn.Seconds()),
			Error:          "too many failed attempts",
		})
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{Error: "invalid code"})
		return
	}

	h.logger.Info("Auth handler: verification succeeded")

	writeJSON(w, http.StatusOK, verifyResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token and returns a fresh session pair.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "refresh token is required"})
		return
	}

	access, refresh, err := h.tokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Error("Auth handler: token refresh failed",
			"error", err.Error())
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// Logout revokes the presented refresh token.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "refresh token is required"})
		return
	}

	if err := h.tokenService.RevokeByToken(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("Auth handler: token revoke failed",
			"error", err.Error())
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
