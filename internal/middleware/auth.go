package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pazzo-admin/internal/model"
	"pazzo-admin/internal/service"
	"pazzo-admin/pkg/apierror"
	"pazzo-admin/pkg/response"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	TokenService *service.TokenService
	// Required rejects unauthenticated mutations. Reads are always public.
	Required bool
	Logger   *zap.Logger
}

// NewAuthMiddleware creates the bearer-token middleware. A valid token is
// attached to the request context whether or not auth is required.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token != "" && cfg.TokenService != nil {
				data, err := cfg.TokenService.ValidateToken(r.Context(), token)
				if err == nil {
					ctx := context.WithValue(r.Context(), TokenDataKey, data)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				log.Debug("token rejected", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
				if cfg.Required && isMutation(r.Method) {
					response.Error(w, apierror.Unauthorized("Invalid or expired token"))
					return
				}
			}

			if cfg.Required && isMutation(r.Method) {
				response.Error(w, apierror.Unauthorized("Authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
