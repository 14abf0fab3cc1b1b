// Package auth validates the bearer tokens the upstream registration system
// attaches to its calls. Tokens are HS256-signed JWTs sharing a secret with
// the issuer; validated subjects are placed on the request context for the
// handlers to log.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey avoids collisions with other packages' context values.
type contextKey string

// ContextKeySubject is the key under which the validated token subject is
// stored on the request context.
const ContextKeySubject contextKey = "jwt_subject"

var errMissingToken = errors.New("missing bearer token")

// Verifier checks bearer tokens on incoming requests.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the shared HS256 secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Middleware rejects requests without a valid token. When no secret is
// configured the middleware passes everything through, which keeps local
// development free of token plumbing.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(v.secret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		subject, err := v.verify(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (v *Verifier) verify(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errMissingToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// Subject returns the validated token subject from ctx, or "" when the
// middleware was disabled.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(ContextKeySubject).(string); ok {
		return s
	}
	return ""
}
