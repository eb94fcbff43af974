package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sylvaincormier/bittensor-async-api/internal/crypto"
)

// Principal identifies an authenticated caller.
type Principal struct {
	Subject string
	// Scheme is "api_key" or "token".
	Scheme string
}

type principalKey struct{}

// PrincipalFrom returns the authenticated principal stored on the request
// context, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Auth returns middleware that accepts either the static API key or a
// signed token issued by the token endpoint. Paths in exempt skip
// authentication entirely. If apiKey is empty, authentication is disabled.
func Auth(apiKey string, signer *crypto.TokenSigner, exempt []string) func(http.Handler) http.Handler {
	exemptSet := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		exemptSet[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := exemptSet[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			credential := extractCredential(r)
			if credential == "" {
				writeUnauthorized(w, "missing credentials")
				return
			}

			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(credential), []byte(apiKey)) == 1 {
				ctx := context.WithValue(r.Context(), principalKey{}, Principal{Subject: "api_key", Scheme: "api_key"})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if signer != nil {
				if subject, err := signer.Verify(credential); err == nil {
					ctx := context.WithValue(r.Context(), principalKey{}, Principal{Subject: subject, Scheme: "token"})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			writeUnauthorized(w, "invalid credentials")
		})
	}
}

// extractCredential looks for a credential in the Authorization header
// (Bearer scheme) or in the X-API-Key header.
func extractCredential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
