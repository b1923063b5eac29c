package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
)

func newIssuer(clk clock.Clock) *Issuer {
	return NewIssuer(config.AuthConfig{JWTSecret: "s3cret", AdminPassword: "hunter2", TokenTTL: time.Hour}, clk)
}

func TestIssueAndVerify(t *testing.T) {
	clk := clock.NewFixed(time.Now())
	i := newIssuer(clk)

	token, exp, err := i.Issue("hunter2")
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(time.Hour).Unix(), exp.Unix())

	claims, err := i.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)

	clk.Advance(2 * time.Hour)
	_, err = i.Verify(token)
	assert.Error(t, err)
}

func TestIssueWrongPassword(t *testing.T) {
	_, _, err := newIssuer(nil).Issue("nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, _, err := newIssuer(nil).Issue("hunter2")
	require.NoError(t, err)

	other := NewIssuer(config.AuthConfig{JWTSecret: "different", AdminPassword: "x", TokenTTL: time.Hour}, nil)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	i := newIssuer(nil)
	token, _, err := i.Issue("hunter2")
	require.NoError(t, err)

	h := i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := ClaimsFrom(r.Context())
		assert.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"no token", "", "", http.StatusUnauthorized},
		{"bad token", "Bearer garbage", "", http.StatusUnauthorized},
		{"header token", "Bearer " + token, "", http.StatusNoContent},
		{"query token", "", "?token=" + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	i := NewIssuer(config.AuthConfig{}, nil)
	assert.False(t, i.Enabled())

	h := i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, _, err := i.Issue("anything")
	assert.Error(t, err)
}
