package email

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/pressbox/pressbox/internal/model"
)

var _ model.EmailSender = (*SMTPSender)(nil)

// sendFunc matches smtp.SendMail and is swappable in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail over plain SMTP. It is intended for a local
// relay (mailpit, postfix) rather than talking to providers directly.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	send sendFunc
}

// NewSMTPSender creates a sender for the given relay. Auth is attached
// only when a user is configured.
func NewSMTPSender(host, port, from, user, pass string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPSender{
		addr: host + ":" + port,
		from: from,
		auth: auth,
		send: smtp.SendMail,
	}
}

// Send delivers a single message. The HTML part is preferred when set;
// the text part is the fallback body.
func (s *SMTPSender) Send(ctx context.Context, msg model.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	body := s.compose(msg)
	if err := s.send(s.addr, s.auth, s.from, []string{msg.To}, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) compose(msg model.EmailMessage) []byte {
	var b strings.Builder

	contentType := "text/plain; charset=utf-8"
	body := msg.Text
	if msg.HTML != "" {
		contentType = "text/html; charset=utf-8"
		body = msg.HTML
	}

	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	return []byte(b.String())
}
