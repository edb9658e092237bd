package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/keydash/keydash/internal/model"
	"github.com/keydash/keydash/internal/service"
)

type contextKeySession string

// SessionKey is the context key for the decoded session.
const SessionKey contextKeySession = "session"

// SessionCookie is the cookie the sign-in endpoint sets.
const SessionCookie = "keydash.session-token"

// LoadSession returns an HTTP middleware that decodes the caller's session
// token, if any, and attaches the Session to the request context. The token is
// read from the Authorization Bearer header first, then from the session
// cookie.
//
// Requests without a valid token pass through unchanged; handlers decide
// whether a session is required and in what order that check runs.
func LoadSession(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := authSvc.ParseToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// GetSession extracts the session from the context. Returns nil if the
// request carried no valid token.
func GetSession(ctx context.Context) *model.Session {
	if s, ok := ctx.Value(SessionKey).(*model.Session); ok {
		return s
	}
	return nil
}
