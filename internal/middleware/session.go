package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const SessionCookieName = "portal_session"

const sessionIDContextKey contextKey = "session_id"

type contextKey string

// BrowserSession makes sure every request carries a portal_session cookie
// and exposes its value through SessionIDFromContext. The cookie only names
// a token namespace on the server; it holds no token itself.
func BrowserSession(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if parsed, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					id = parsed.String()
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok && id != ""
}
