package http

import (
	"context"
	"net/http"
	"strings"

	applog "foco/internal/log"
)

type contextKey string

const (
	userIDKey     contextKey = "user_id"
	sessionCookie            = "foco_session"
)

// requireAuth accepts a session token from the Authorization header or the
// session cookie and stores the user id in the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" || s.deps.Sessions == nil {
			UnauthorizedError("Faça login para continuar.").Write(w)
			return
		}
		claims, err := s.deps.Sessions.Parse(token)
		if err != nil {
			s.log(r).InfoContext(r.Context(), "Rejected session token", applog.FieldError, err)
			UnauthorizedError("Sessão expirada. Entre novamente.").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	})
}

// sessionUID returns the user of a valid session token, or "".
func (s *Server) sessionUID(r *http.Request) string {
	token := sessionToken(r)
	if token == "" || s.deps.Sessions == nil {
		return ""
	}
	claims, err := s.deps.Sessions.Parse(token)
	if err != nil {
		return ""
	}
	return claims.UserID
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// userID is only valid inside handlers wrapped by requireAuth.
func userID(r *http.Request) string {
	uid, _ := r.Context().Value(userIDKey).(string)
	return uid
}
