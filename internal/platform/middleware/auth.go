package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"templatehub/pkg/requestcontext"
)

const userIDHeader = "X-User-Id"

// GetActor returns the acting user resolved by RequireAuth.
func GetActor(ctx context.Context) string {
	return requestcontext.Actor(ctx)
}

// JWTValidator verifies a bearer token and returns the subject it was issued
// to.
type JWTValidator interface {
	Validate(token string) (subject string, err error)
}

// RequireAuth resolves the acting user for a request. With a validator
// configured it demands a valid bearer token; without one (dev mode) it trusts
// the X-User-Id header and falls back to "anonymous". The resolved actor is
// stamped on the request context and flows into createdBy/updatedBy fields.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				actor := r.Header.Get(userIDHeader)
				if actor == "" {
					actor = "anonymous"
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), actor)))
				return
			}

			raw := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			subject, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(r.Context(), "token rejected",
					"request_id", GetRequestID(r.Context()),
					"error", err,
				)
				unauthorized(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(r.Context(), subject)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","message":"` + msg + `"}`))
}
