package model

import "context"

// EmailMessage is a single outbound message.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers transactional mail (one-time codes).
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// CaptchaVerifier validates a client captcha token. Implementations
// must pass when no captcha is configured.
type CaptchaVerifier interface {
	Validate(ctx context.Context, token, remoteIP string) (bool, error)
}
