package mw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"smartline/internal/model"
)

type contextKey string

const principalCtxKey contextKey = "principal"

// WithPrincipal returns a context carrying the authenticated caller.
func WithPrincipal(ctx context.Context, p model.UserProfile) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// Principal extracts the authenticated caller from the request context.
func Principal(ctx context.Context) (model.UserProfile, bool) {
	p, ok := ctx.Value(principalCtxKey).(model.UserProfile)
	return p, ok
}

// AuthMiddleware validates the bearer token and places the caller's profile
// in the request context. Role and address travel in the claims; they were
// fixed at login and stay fixed for the session.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid token format", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid claims", http.StatusInternalServerError)
				return
			}

			username, ok := claims["username"].(string)
			if !ok || username == "" {
				http.Error(w, "username not found in token", http.StatusUnauthorized)
				return
			}
			role, _ := claims["role"].(string)
			address, _ := claims["address"].(string)

			principal := model.UserProfile{
				Username: username,
				Role:     model.Role(role),
				Address:  address,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
