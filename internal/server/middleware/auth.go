package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/3leaps/gobiome/internal/errors"
)

// TokenValidator reports whether a bearer token is valid. An error means
// validation could not be performed, not that the token is invalid.
type TokenValidator func(ctx context.Context, token string) (bool, error)

// BearerAuth rejects requests that do not carry a valid bearer token in
// the Authorization header. Validation failures short-circuit before the
// wrapped handler runs.
func BearerAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := apperrors.RequestIDFromContext(r.Context())

			token, ok := bearerToken(r)
			if !ok {
				envelope := apperrors.NewErrorEnvelope(apperrors.CodeUnauthorized, "missing bearer token").
					WithRequestID(requestID)
				writeErrorResponse(w, envelope, http.StatusUnauthorized)
				return
			}

			valid, err := validate(r.Context(), token)
			if err != nil {
				logger.Error("token validation failed",
					zap.String("request_id", requestID),
					zap.Error(err),
				)
				envelope := apperrors.NewErrorEnvelope(apperrors.CodeInternal, "token validation failed").
					WithRequestID(requestID)
				writeErrorResponse(w, envelope, http.StatusInternalServerError)
				return
			}
			if !valid {
				envelope := apperrors.NewErrorEnvelope(apperrors.CodeUnauthorized, "invalid or expired token").
					WithRequestID(requestID)
				writeErrorResponse(w, envelope, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
