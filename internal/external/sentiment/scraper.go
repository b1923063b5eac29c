package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
	"github.com/wonny/autoinvest/backend/pkg/redis"
)

// maxLabelLen bounds free text copied into prompts
const maxLabelLen = 64

// moods are matched longest first so "Extreme Fear" beats "Fear"
var moods = []string{"Extreme Greed", "Extreme Fear", "Greed", "Fear", "Neutral"}

// Scraper reads a market mood label from an HTML page
// ⭐ SSOT: 시장 심리 스크래핑은 여기서만
type Scraper struct {
	httpClient *httputil.Client
	pageURL    string
	selector   string
	logger     *logger.Logger
}

// NewScraper creates a scraper for cfg.URL; cfg.Selector picks the label node
func NewScraper(cfg config.SentimentConfig, httpClient *httputil.Client, limiter *redis.RateLimiter, log *logger.Logger) *Scraper {
	if limiter != nil {
		httpClient = httpClient.WithRateLimiter(limiter, redis.SentimentRateLimit)
	}
	return &Scraper{
		httpClient: httpClient,
		pageURL:    cfg.URL,
		selector:   cfg.Selector,
		logger:     log.WithComponent("sentiment"),
	}
}

// GetSentiment fetches the page and extracts the label
func (s *Scraper) GetSentiment(ctx context.Context) (*contracts.Sentiment, error) {
	if s.pageURL == "" || s.selector == "" {
		return nil, fmt.Errorf("sentiment source not configured")
	}

	resp, err := s.httpClient.Get(ctx, s.pageURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	text := strings.Join(strings.Fields(doc.Find(s.selector).First().Text()), " ")
	if text == "" {
		return nil, fmt.Errorf("selector %q matched no text", s.selector)
	}

	return &contracts.Sentiment{
		Label:  Normalize(text),
		Source: source(s.pageURL),
	}, nil
}

// Normalize maps free text onto a known mood, else returns it truncated
func Normalize(text string) string {
	lower := strings.ToLower(text)
	for _, m := range moods {
		if strings.Contains(lower, strings.ToLower(m)) {
			return m
		}
	}
	if len(text) > maxLabelLen {
		return text[:maxLabelLen]
	}
	return text
}

func source(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
