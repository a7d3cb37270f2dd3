package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ContextKey avoids collisions with other packages' context values.
type ContextKey string

const SellerIDCtxKey = ContextKey("seller_id")

// Claims is the token shape issued by the auth service.
type Claims struct {
	SellerID string `json:"seller_id"`
	jwt.RegisteredClaims
}

// SellerIDFromContext returns the authenticated seller ID, if any.
func SellerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SellerIDCtxKey).(string)
	return id, ok && id != ""
}

// JWTAuth validates a Bearer token and stores the seller ID in the request
// context. The core usecases still receive the seller ID as an explicit
// argument; this middleware only resolves it at the edge.
func JWTAuth(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, "authorization token is not provided", http.StatusUnauthorized)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					http.Error(w, "token has expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "token is invalid", http.StatusUnauthorized)
				return
			}
			if claims.SellerID == "" {
				http.Error(w, "seller_id not found in token claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), SellerIDCtxKey, claims.SellerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
