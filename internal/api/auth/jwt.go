package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
)

// ErrInvalidCredentials is returned for a wrong admin password
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	issuer  = "autoinvest"
	subject = "operator"
)

type ctxKey struct{}

// Issuer signs and verifies HS256 dashboard tokens.
// A zero secret disables enforcement.
// ⭐ SSOT: API 인증은 여기서만
type Issuer struct {
	secret   []byte
	password string
	ttl      time.Duration
	clock    clock.Clock
}

// NewIssuer creates an issuer from auth settings
func NewIssuer(cfg config.AuthConfig, clk clock.Clock) *Issuer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Issuer{
		secret:   []byte(cfg.JWTSecret),
		password: cfg.AdminPassword,
		ttl:      cfg.TokenTTL,
		clock:    clk,
	}
}

// Enabled reports whether tokens are required
func (i *Issuer) Enabled() bool {
	return len(i.secret) > 0
}

// Issue exchanges the admin password for a signed token
func (i *Issuer) Issue(password string) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, fmt.Errorf("auth disabled")
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(i.password)) != 1 {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := i.clock.Now()
	expires := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and checks signature, issuer and expiry
func (i *Issuer) Verify(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token.
// It passes everything through when auth is disabled.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if raw == "" {
			// Browsers cannot set headers on websocket upgrades
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := i.Verify(raw)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

// ClaimsFrom returns the verified claims, if any
func ClaimsFrom(ctx context.Context) (*jwt.RegisteredClaims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*jwt.RegisteredClaims)
	return c, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="autoinvest"`)
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
