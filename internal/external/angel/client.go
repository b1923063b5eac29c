package angel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// ErrNotAuthenticated is returned when SmartAPI rejects the session token
var ErrNotAuthenticated = errors.New("angel: not authenticated")

// Secret keys resolved through the SecretStore
const (
	KeyAPIKey     = "ANGEL_API_KEY"
	KeyClientID   = "ANGEL_CLIENT_ID"
	KeyPassword   = "ANGEL_PASSWORD"
	KeyTOTPSecret = "ANGEL_TOTP_SECRET"
)

// sessionTTL is conservative; SmartAPI tokens expire at the next trading day's start
const sessionTTL = 12 * time.Hour

// Client talks to Angel One SmartAPI
// ⭐ SSOT: Angel One API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	secrets    contracts.SecretStore
	cfg        config.AngelConfig
	clock      clock.Clock
	logger     *logger.Logger

	// Session management
	mu           sync.RWMutex
	apiKey       string
	jwtToken     string
	refreshToken string
	feedToken    string
	tokenExpiry  time.Time
}

// NewClient creates a SmartAPI client. Requests are paced at cfg.RateLimit per second.
func NewClient(cfg config.AngelConfig, secrets contracts.SecretStore, httpClient *httputil.Client, clk clock.Clock, log *logger.Logger) *Client {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Client{
		httpClient: httpClient.WithLocalLimit(cfg.RateLimit, 1),
		secrets:    secrets,
		cfg:        cfg,
		clock:      clk,
		logger:     log.WithComponent("angel"),
	}
}

// envelope is the common SmartAPI response wrapper
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

type loginRequest struct {
	ClientCode string `json:"clientcode"`
	Password   string `json:"password"`
	TOTP       string `json:"totp"`
}

type loginData struct {
	JWTToken     string `json:"jwtToken"`
	RefreshToken string `json:"refreshToken"`
	FeedToken    string `json:"feedToken"`
}

// IsAuthenticated reports whether a non-expired session token is held
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jwtToken != "" && c.clock.Now().Before(c.tokenExpiry)
}

// Authenticate logs in with client code, password and a fresh TOTP code
func (c *Client) Authenticate(ctx context.Context) error {
	creds, err := c.credentials(ctx)
	if err != nil {
		return err
	}

	code, err := totp.GenerateCode(creds[KeyTOTPSecret], c.clock.Now())
	if err != nil {
		return fmt.Errorf("generate totp: %w", err)
	}

	body := loginRequest{
		ClientCode: creds[KeyClientID],
		Password:   creds[KeyPassword],
		TOTP:       code,
	}

	var data loginData
	if err := c.call(ctx, http.MethodPost, "/rest/auth/angelbroking/user/v1/loginByPassword", creds[KeyAPIKey], "", body, &data); err != nil {
		c.logger.WithError(err).Error("Angel One login failed")
		return fmt.Errorf("login: %w", err)
	}
	if data.JWTToken == "" {
		return fmt.Errorf("login: empty session token")
	}

	c.mu.Lock()
	c.apiKey = creds[KeyAPIKey]
	c.jwtToken = data.JWTToken
	c.refreshToken = data.RefreshToken
	c.feedToken = data.FeedToken
	c.tokenExpiry = c.clock.Now().Add(sessionTTL)
	c.mu.Unlock()

	c.logger.Info("Angel One login successful")
	return nil
}

func (c *Client) credentials(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, 4)
	for _, key := range []string{KeyAPIKey, KeyClientID, KeyPassword, KeyTOTPSecret} {
		v, err := c.secrets.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("credential %s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// session returns the current token, logging in first when needed
func (c *Client) session(ctx context.Context) (apiKey, token string, err error) {
	if !c.IsAuthenticated() {
		if err := c.Authenticate(ctx); err != nil {
			return "", "", err
		}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.jwtToken, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.jwtToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// secure performs an authenticated call. A 401 or token error drops the session.
func (c *Client) secure(ctx context.Context, method, path string, body, out interface{}) error {
	apiKey, token, err := c.session(ctx)
	if err != nil {
		return err
	}

	err = c.call(ctx, method, path, apiKey, token, body, out)
	if errors.Is(err, ErrNotAuthenticated) {
		c.invalidate()
		c.logger.Warn("Angel One session rejected, token dropped")
	}
	return err
}

// call sends one SmartAPI request and unwraps the envelope into out
func (c *Client) call(ctx context.Context, method, path, apiKey, token string, body, out interface{}) error {
	req, err := httputil.NewJSONRequest(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-ClientLocalIP", c.cfg.ClientIP)
	req.Header.Set("X-ClientPublicIP", c.cfg.ClientIP)
	req.Header.Set("X-MACAddress", c.cfg.MAC)
	req.Header.Set("X-PrivateKey", apiKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var env envelope
	if err := c.httpClient.DoJSON(req, &env); err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: status %d", ErrNotAuthenticated, se.StatusCode)
		}
		return err
	}

	if !env.Status {
		if isTokenError(env.ErrorCode) {
			return fmt.Errorf("%w: %s", ErrNotAuthenticated, env.Message)
		}
		return fmt.Errorf("smartapi error %s: %s", env.ErrorCode, env.Message)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// isTokenError matches SmartAPI's invalid/expired token codes
func isTokenError(code string) bool {
	switch code {
	case "AG8001", "AG8002", "AG8003", "AB1010":
		return true
	}
	return false
}
