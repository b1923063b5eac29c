package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// KeyAPIKey is the SecretStore key of the bearer token
const KeyAPIKey = "LLM_API_KEY"

const systemPrompt = "You are a disciplined Indian equity trading assistant. " +
	"Answer with the decision keyword on the first line, then a short rationale."

// Client calls an OpenAI-compatible chat completions endpoint
// ⭐ SSOT: LLM 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	secrets    contracts.SecretStore
	cfg        config.LLMConfig
	logger     *logger.Logger
}

// NewClient creates an advisory client paced at cfg.RateLimit requests per second
func NewClient(cfg config.LLMConfig, secrets contracts.SecretStore, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient.WithLocalLimit(cfg.RateLimit, 1),
		secrets:    secrets,
		cfg:        cfg,
		logger:     log.WithComponent("llm"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends prompt as a single user turn and returns the reply text
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	key, err := c.secrets.Get(ctx, KeyAPIKey)
	if err != nil {
		return "", fmt.Errorf("llm credential: %w", err)
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/chat/completions"
	req, err := httputil.NewJSONRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+key)

	var resp chatResponse
	if err := c.httpClient.DoJSON(req, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	c.logger.WithFields(map[string]interface{}{
		"model":             c.cfg.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("Chat completion received")

	return resp.Choices[0].Message.Content, nil
}
