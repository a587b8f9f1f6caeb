package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pressbox/pressbox/internal/model"
)

const verifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var _ model.CaptchaVerifier = (*Turnstile)(nil)

// Turnstile validates Cloudflare Turnstile tokens. With an empty secret
// every token passes, so development setups need no captcha account.
type Turnstile struct {
	secret string
	client *http.Client
	url    string
}

func NewTurnstile(secret string) *Turnstile {
	return &Turnstile{
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		url:    verifyURL,
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Validate checks a client token against the verification endpoint.
func (t *Turnstile) Validate(ctx context.Context, token, remoteIP string) (bool, error) {
	if t.secret == "" {
		return true, nil
	}
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to verify captcha: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha verify returned status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return vr.Success, nil
}
