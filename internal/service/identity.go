package service

import (
	"github.com/google/uuid"
)

// Cookie names round-tripped with the client. The anonymous identity
// cookie is HttpOnly and authoritative for keying; the views cookie is a
// readable mirror of the server-side counter, descriptive only.
const (
	AnonCookieName  = "pb_anon_id"
	ViewsCookieName = "pb_views"
)

// AnonCookieMaxAge keeps an anonymous identity stable for about a year.
// Losing the cookie silently resets the reader's quota; accepted.
const AnonCookieMaxAge = 365 * 24 * 60 * 60

// ResolveAnonID returns a stable pseudonymous identity for an
// unauthenticated reader. A parseable existing token is kept as-is;
// anything else gets a fresh UUID, with minted=true telling the caller
// to instruct the client to persist it. No server-side registry exists:
// the token itself is the identity.
func ResolveAnonID(existing string) (id string, minted bool) {
	if existing != "" {
		if parsed, err := uuid.Parse(existing); err == nil {
			return parsed.String(), false
		}
	}
	return uuid.NewString(), true
}
