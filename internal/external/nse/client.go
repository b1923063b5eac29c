package nse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/redis"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client reads NSE public JSON endpoints.
// The API only answers once the homepage has set session cookies.
// ⭐ SSOT: NSE API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string

	mu     sync.Mutex
	warmed bool
}

// NewClient creates an NSE client. limiter may be nil.
func NewClient(cfg config.NSEConfig, httpClient *httputil.Client, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	hc := httpClient.
		WithCookieJar().
		WithHeader("User-Agent", userAgent).
		WithHeader("Accept-Language", "en-US,en;q=0.9")
	if limiter != nil {
		hc = hc.WithRateLimiter(limiter, redis.NSERateLimit)
	}

	return &Client{
		httpClient: hc,
		logger:     log.WithComponent("nse"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// warmUp loads the homepage once so the cookie jar holds a session
func (c *Client) warmUp(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.warmed {
		return nil
	}

	resp, err := c.httpClient.Get(ctx, c.baseURL+"/")
	if err != nil {
		return fmt.Errorf("nse warm-up: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nse warm-up: unexpected status code: %d", resp.StatusCode)
	}

	c.warmed = true
	c.logger.Debug("NSE session cookies acquired")
	return nil
}

// getJSON warms up, fetches path and retries once with fresh cookies on 401/403
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		if err := c.warmUp(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Referer", c.baseURL+"/")

		err = c.httpClient.DoJSON(req, out)
		var se *httputil.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) && attempt == 0 {
			c.mu.Lock()
			c.warmed = false
			c.mu.Unlock()
			c.logger.Warn("NSE session expired, warming up again")
			continue
		}
		return err
	}
	return nil
}
