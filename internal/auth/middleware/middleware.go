// Package middleware guards routes behind the session store. Tokens
// travel as a bearer Authorization header; the stored projection is
// injected into the request context for handlers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"campushub/internal/auth/service"
	apperrors "campushub/pkg/errors"
	httputil "campushub/pkg/http"
	"campushub/pkg/logger"
	"campushub/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type contextKey string

const sessionUserKey contextKey = "session_user"

// FromContext returns the session user injected by RequireSession.
func FromContext(ctx context.Context) (model.SessionUser, bool) {
	user, ok := ctx.Value(sessionUserKey).(model.SessionUser)
	return user, ok
}

// WithSessionUser is exported for handler tests.
func WithSessionUser(ctx context.Context, user model.SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserKey, user)
}

type Middleware struct {
	auth service.AuthService
	log  *logger.Logger
}

func New(auth service.AuthService, log *logger.Logger) *Middleware {
	return &Middleware{
		auth: auth,
		log:  log,
	}
}

// RequireSession resolves the bearer token to a stored session and
// injects its user projection; missing or stale tokens get a 401.
func (m *Middleware) RequireSession(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token := extractBearerToken(r)
		if token == "" {
			m.reject(w, apperrors.Unauthorized("Missing session token"))
			return
		}

		session, err := m.auth.Session(r.Context(), token)
		if err != nil {
			m.reject(w, err)
			return
		}

		ctx := WithSessionUser(r.Context(), session.User)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireAdmin layers a role check on top of RequireSession.
func (m *Middleware) RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return m.RequireSession(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionUser, ok := FromContext(r.Context())
		if !ok || !sessionUser.IsAdmin() {
			m.log.Warn("Admin route refused",
				"user", sessionUser.Username,
				"role", sessionUser.Role,
				"path", r.URL.Path,
			)
			m.reject(w, apperrors.Forbidden("Administrator role required"))
			return
		}
		next(w, r, ps)
	})
}

func (m *Middleware) reject(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		m.log.Error("failed to write auth error response", "error", writeErr)
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
