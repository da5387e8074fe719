package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/guardianai/pairing-server-go/internal/audit"
	"github.com/guardianai/pairing-server-go/internal/model"
	"github.com/guardianai/pairing-server-go/internal/repository"
	"github.com/guardianai/pairing-server-go/internal/util"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

func GetPrincipal(ctx context.Context) *model.Principal {
	if principal, ok := ctx.Value(PrincipalContextKey).(*model.Principal); ok {
		return principal
	}
	return nil
}

type AuthMiddleware struct {
	principalRepo repository.PrincipalRepository
}

func NewAuthMiddleware(principalRepo repository.PrincipalRepository) *AuthMiddleware {
	return &AuthMiddleware{principalRepo: principalRepo}
}

// Handler requires a valid device credential and stores the principal in the
// request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, failed := m.resolve(w, r)
		if failed {
			return
		}
		if principal == nil {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalHandler resolves a principal when a credential is presented but
// lets anonymous requests through. The redemption endpoint uses it: a device
// may arrive with no identity at all, or with the anonymous identity from an
// earlier attempt.
func (m *AuthMiddleware) OptionalHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, failed := m.resolve(w, r)
		if failed {
			return
		}
		if principal != nil {
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireParent gates parent-only endpoints. Must run after Handler.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipal(r.Context())
		if principal == nil || principal.Anonymous || principal.Role != model.RoleParent {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"error": "Parent identity required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolve looks up the presented credential. The bool result reports whether
// a response was already written (lookup failure or bad credential).
func (m *AuthMiddleware) resolve(w http.ResponseWriter, r *http.Request) (*model.Principal, bool) {
	token := extractToken(r)
	if token == "" {
		return nil, false
	}

	principal, err := m.principalRepo.FindByCredentialHash(r.Context(), util.HashToken(token))
	if err != nil {
		log.Error().Err(err).Msg("auth middleware: database error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Authentication failed",
		})
		return nil, true
	}

	if principal == nil {
		log.Warn().Msg("auth middleware: invalid credential attempt")
		audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "Invalid token",
		})
		return nil, true
	}

	// Best effort; the request proceeds even if the timestamp write fails.
	if err := m.principalRepo.TouchLastSeen(r.Context(), principal.ID); err != nil {
		log.Warn().Err(err).Str("principalId", principal.ID).Msg("failed to record last seen")
	}

	return principal, false
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
