package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elimucore/elimucore/internal/platform/httpx"
	"github.com/elimucore/elimucore/internal/shared"
)

// PrincipalLoader resolves the principal backing a session user ID.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (Principal, error)
}

// DenialCounter records guard denials for monitoring.
type DenialCounter interface {
	CountDenial(reason string)
}

// Middleware wires authentication and authorization for HTTP handlers.
type Middleware struct {
	Loader  PrincipalLoader
	Logger  *slog.Logger
	Metrics DenialCounter
}

// Authenticate resolves the session into a principal and stores it in the
// request context. Requests without a valid session are rejected with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.currentUserID(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		principal, err := m.Loader.LoadPrincipal(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("load principal", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequirePermission ensures the current principal holds the permission.
func (m Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return m.require(Permission(strings.TrimSpace(permission)))
}

// RequireAnyPermission ensures the current principal holds at least one of
// the permissions.
func (m Middleware) RequireAnyPermission(permissions ...string) func(http.Handler) http.Handler {
	trimmed := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		trimmed = append(trimmed, strings.TrimSpace(permission))
	}
	return m.require(AnyPermission(trimmed...))
}

// RequireRole ensures the current principal holds one of the roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return m.require(AnyRole(roles...))
}

func (m Middleware) require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if err := Authorize(principal, req); err != nil {
				if m.Metrics != nil {
					reason := DenyForbidden
					if deny, ok := err.(*DenyError); ok {
						reason = deny.Reason
					}
					m.Metrics.CountDenial(string(reason))
				}
				RespondDeny(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RespondDeny writes a guard denial as a 403 problem response carrying the
// deny reason as the status key.
func RespondDeny(w http.ResponseWriter, err error) {
	reason := DenyForbidden
	if deny, ok := err.(*DenyError); ok {
		reason = deny.Reason
	}
	httpx.ProblemWithKey(w, http.StatusForbidden, "Forbidden", err.Error(), string(reason))
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
