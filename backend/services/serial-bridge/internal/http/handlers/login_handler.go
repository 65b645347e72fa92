package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/auth"
)

// LoginService exchanges the operator password for a token.
type LoginService interface {
	Login(password string) (string, error)
}

// NewLoginHandler handles POST /api/login.
func NewLoginHandler(svc LoginService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		Password string `json:"password"`
	}
	type response struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req.Password = strings.TrimSpace(req.Password)
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "password is required")
			return
		}

		token, err := svc.Login(req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			logger.Error("failed to issue console token", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to login")
			return
		}

		writeJSON(w, http.StatusOK, response{Token: token, TokenType: "Bearer"})
	}
}
