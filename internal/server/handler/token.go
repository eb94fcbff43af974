package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/crypto"
)

// TokenHandler exchanges the static API key for a short-lived signed token.
type TokenHandler struct {
	apiKey string
	signer *crypto.TokenSigner
	ttl    time.Duration
	logger *slog.Logger
}

// NewTokenHandler creates a TokenHandler.
func NewTokenHandler(apiKey string, signer *crypto.TokenSigner, ttl time.Duration, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		apiKey: apiKey,
		signer: signer,
		ttl:    ttl,
		logger: logHandler(logger, "token"),
	}
}

// tokenRequest is the issuance request body.
type tokenRequest struct {
	APIKey  string `json:"api_key"`
	Subject string `json:"subject"`
}

// IssueToken validates the API key and returns a signed bearer token.
// POST /api/v1/auth/token
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" || h.signer == nil {
		writeError(w, http.StatusNotImplemented, "token authentication is not configured")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(h.apiKey)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "api"
	}

	token, err := h.signer.Sign(subject, h.ttl)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "token signing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.ttl.Seconds()),
	})
}
