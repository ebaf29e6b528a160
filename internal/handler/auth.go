package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smartline/internal/model"
	"smartline/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Address  string `json:"address,omitempty"`
}

func issueToken(profile model.UserProfile, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": profile.Username,
		"role":     string(profile.Role),
		"address":  profile.Address,
		"exp":      jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	return token.SignedString([]byte(secret))
}

func RegisterHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}
		if req.Address == "" {
			http.Error(w, "delivery address required", http.StatusBadRequest)
			return
		}

		profile, err := authSvc.Register(r.Context(), req.Username, req.Password, req.Address)
		if err != nil {
			if service.IsAuthError(err) {
				http.Error(w, err.Error(), http.StatusConflict)
			} else {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		tokenString, err := issueToken(profile, secret)
		if err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Authorization", "Bearer "+tokenString)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	}
}

func LoginHandler(authSvc *service.AuthService, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		profile, err := authSvc.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			if service.IsAuthError(err) {
				http.Error(w, "invalid username or password", http.StatusUnauthorized)
			} else {
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		tokenString, err := issueToken(profile, secret)
		if err != nil {
			http.Error(w, "token generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Authorization", "Bearer "+tokenString)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	}
}
