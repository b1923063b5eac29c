package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/httputil"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// KeyBotToken is the SecretStore key of the bot token
const KeyBotToken = "TELEGRAM_BOT_TOKEN"

// Notifier sends operator alerts to every configured chat
// ⭐ SSOT: 텔레그램 발송은 여기서만
type Notifier struct {
	httpClient *httputil.Client
	secrets    contracts.SecretStore
	baseURL    string
	chatIDs    []string
	logger     *logger.Logger
}

// NewNotifier creates a Telegram notifier
func NewNotifier(cfg config.TelegramConfig, secrets contracts.SecretStore, httpClient *httputil.Client, log *logger.Logger) *Notifier {
	return &Notifier{
		httpClient: httpClient,
		secrets:    secrets,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		chatIDs:    cfg.ChatIDs,
		logger:     log.WithComponent("telegram"),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers message to each chat. Per-chat failures are joined.
func (n *Notifier) Send(ctx context.Context, message string) error {
	if len(n.chatIDs) == 0 {
		n.logger.Debug("No Telegram chats configured, notification dropped")
		return nil
	}

	token, err := n.secrets.Get(ctx, KeyBotToken)
	if err != nil {
		return fmt.Errorf("telegram credential: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, token)

	var errs []error
	for _, chatID := range n.chatIDs {
		req, err := httputil.NewJSONRequest(ctx, http.MethodPost, url, sendMessageRequest{ChatID: chatID, Text: message})
		if err != nil {
			return err
		}

		var resp sendMessageResponse
		if err := n.httpClient.DoJSON(req, &resp); err != nil {
			errs = append(errs, fmt.Errorf("chat %s: %w", chatID, err))
			continue
		}
		if !resp.OK {
			errs = append(errs, fmt.Errorf("chat %s: %s", chatID, resp.Description))
		}
	}
	return errors.Join(errs...)
}
