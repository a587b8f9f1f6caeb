package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pressbox/pressbox/internal/logger"
	"github.com/pressbox/pressbox/internal/model"
	"github.com/pressbox/pressbox/internal/service"
)

// TokenParser resolves user identity and role from access tokens.
type TokenParser interface {
	ParseAccess(token string) (uuid.UUID, model.Role, error)
}

// Authenticate resolves the reader identity for every request. A valid
// bearer token yields an authenticated reader; everything else falls
// back to the anonymous cookie identity, minting one when absent. A
// presented but invalid token is rejected rather than downgraded.
type Authenticate struct {
	tokens TokenParser
	logger *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens TokenParser, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokens: tokens, logger: logger}
}

// Handle resolves the reader and injects it into the request context.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header != "" {
			tokenString := strings.TrimPrefix(header, "Bearer ")

			userID, role, err := m.tokens.ParseAccess(tokenString)
			if err != nil || userID == uuid.Nil {
				m.logger.Debug("Authenticate middleware: rejected token",
					"path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid access token"}`))
				return
			}

			reader := model.Reader{Role: role, UserID: userID}
			next.ServeHTTP(w, r.WithContext(SetReader(r.Context(), reader)))
			return
		}

		anonID := m.resolveAnonCookie(w, r)
		reader := model.Reader{Role: model.RoleAnonymous, AnonID: anonID}
		next.ServeHTTP(w, r.WithContext(SetReader(r.Context(), reader)))
	})
}

// resolveAnonCookie returns the anonymous identity for the request,
// setting a fresh cookie when one had to be minted.
func (m *Authenticate) resolveAnonCookie(w http.ResponseWriter, r *http.Request) string {
	var existing string
	if c, err := r.Cookie(service.AnonCookieName); err == nil {
		existing = c.Value
	}

	id, minted := service.ResolveAnonID(existing)
	if minted {
		http.SetCookie(w, &http.Cookie{
			Name:     service.AnonCookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   service.AnonCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return id
}

// RequireRole guards a route subtree: anonymous readers get 401, and
// authenticated readers outside the allowed roles get 403.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reader, ok := ReaderFromContext(r.Context())
			if !ok || reader.UserID == uuid.Nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			if !allowed[reader.Role] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
