package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/agora-live/agora/internal/auth"
)

type contextKey string

const contextKeyEmail contextKey = "auth.email"

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(contextKeyEmail).(string)

	user, err := s.auth.GetUser(r.Context(), email)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":    user.Email,
		"username": user.Username,
	})
}

// requireAuth verifies the bearer token and stashes the subject email in
// the request context.
func (s *Service) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.bearerSubject(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyEmail, email)))
	})
}

// bearerSubject extracts and verifies the Authorization bearer token,
// returning the subject email.
func (s *Service) bearerSubject(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	email, err := s.auth.VerifyToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return "", false
	}
	return email, true
}
