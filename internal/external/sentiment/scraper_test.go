package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

const page = `<html><body>
<div class="mmi-gauge"><span class="mood">
	Market is in   Extreme Fear zone
</span></div>
<span class="mood">Greed</span>
</body></html>`

func newScraper(t *testing.T, body string, status int, selector string) *Scraper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := config.SentimentConfig{URL: srv.URL + "/mmi", Selector: selector}
	return NewScraper(cfg, httputil.New(logger.NewNop()).DisableRetry(), nil, logger.NewNop())
}

func TestGetSentiment(t *testing.T) {
	s := newScraper(t, page, http.StatusOK, ".mmi-gauge .mood")

	got, err := s.GetSentiment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Extreme Fear", got.Label)
	assert.True(t, strings.HasPrefix(got.Source, "127.0.0.1"))
}

func TestGetSentimentErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		selector string
		want     string
	}{
		{"no match", http.StatusOK, ".missing", "matched no text"},
		{"bad status", http.StatusServiceUnavailable, ".mood", "unexpected status code"},
		{"unconfigured", http.StatusOK, "", "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScraper(t, page, tt.status, tt.selector)
			_, err := s.GetSentiment(context.Background())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Greed", Normalize("greed"))
	assert.Equal(t, "Extreme Greed", Normalize("EXTREME GREED"))
	assert.Equal(t, "Neutral", Normalize("mood: neutral"))
	assert.Equal(t, "Cautious optimism", Normalize("Cautious optimism"))
	assert.Len(t, Normalize(strings.Repeat("x", 100)), maxLabelLen)
}
