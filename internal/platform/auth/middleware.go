package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/supplyline/api/internal/domain"
)

const defaultResolveTimeout = 5 * time.Second

var (
	// ErrTokenUnknown signals that no principal matches the presented token.
	ErrTokenUnknown = errors.New("auth: unknown api token")
	// ErrPrincipalInactive signals that the principal exists but is deactivated.
	ErrPrincipalInactive = errors.New("auth: principal inactive")
)

// TokenResolver resolves an API token to the principal that owns it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (domain.User, error)
}

// Authenticator wires API token resolution into HTTP middleware.
type Authenticator struct {
	resolver TokenResolver
	timeout  time.Duration
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithResolveTimeout sets the timeout used when resolving tokens.
func WithResolveTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(resolver TokenResolver, opts ...Option) *Authenticator {
	a := &Authenticator{
		resolver: resolver,
		timeout:  defaultResolveTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// RequireToken resolves the Authorization token, optionally restricting access
// to the provided principal types.
func (a *Authenticator) RequireToken(allowedTypes ...domain.UserType) func(http.Handler) http.Handler {
	allowed := make(map[domain.UserType]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[t] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if a == nil || a.resolver == nil {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			ctx, cancel := a.contextWithTimeout(r.Context())
			if cancel != nil {
				defer cancel()
			}

			user, err := a.resolver.ResolveToken(ctx, tokenStr)
			if err != nil {
				respondResolutionError(w, err)
				return
			}
			if !user.Active {
				respondAuthError(w, http.StatusForbidden, "principal_inactive", "account is deactivated")
				return
			}

			identity := FromUser(user)
			if len(allowed) > 0 {
				if _, ok := allowed[identity.Type]; !ok {
					respondAuthError(w, http.StatusForbidden, "insufficient_type", "principal type is not permitted here")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func (a *Authenticator) contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a == nil || a.timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, a.timeout)
}

// extractToken accepts both "Token <key>" and "Bearer <key>" authorization schemes.
func extractToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	scheme := strings.ToLower(strings.TrimSpace(parts[0]))
	if scheme != "token" && scheme != "bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondResolutionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenUnknown):
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "api token is not recognised")
	case errors.Is(err, ErrPrincipalInactive):
		respondAuthError(w, http.StatusForbidden, "principal_inactive", "account is deactivated")
	default:
		respondAuthError(w, http.StatusServiceUnavailable, "auth_unavailable", "authorization backend unavailable")
	}
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}
