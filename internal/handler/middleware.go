package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const authUserIDKey contextKey = "authUserID"

// AdminTokenMiddleware validates the Bearer token issued by the identity
// provider (HS256, shared secret) and injects the account id into context.
// When required is false a missing header passes through; a present but
// invalid one is still rejected.
func AdminTokenMiddleware(secret string, required bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					logger.Warn("auth: missing token", zap.String("path", r.URL.Path))
					writeFailure(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format", zap.String("path", r.URL.Path))
				writeFailure(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeFailure(w, http.StatusUnauthorized, "Token inválido ou expirado")
				return
			}

			sub := ""
			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				sub, _ = claims["sub"].(string)
			}
			ctx := context.WithValue(r.Context(), authUserIDKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthUserIDFromContext extracts the authenticated provider account id.
func AuthUserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(authUserIDKey).(string)
	return id
}

// jsonRecoverer converts panics into the JSON failure envelope instead of
// an empty 500.
func jsonRecoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
					)
					writeFailure(w, http.StatusInternalServerError, "erro interno ao processar o cadastro")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
