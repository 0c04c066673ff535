package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"cargo-watcher/internal/core/logger"

	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier delivers notifications through the Telegram Bot API
// sendMessage method.
type TelegramNotifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *zap.Logger
}

// NewTelegramNotifier creates a TelegramNotifier for the given bot and chat.
func NewTelegramNotifier(botToken, chatID string, client *http.Client) *TelegramNotifier {
	return &TelegramNotifier{
		apiBase:  telegramAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   client,
		logger:   logger.Get(),
	}
}

// NewTelegramNotifierWithBase is like NewTelegramNotifier with a custom API
// base URL, for tests.
func NewTelegramNotifierWithBase(apiBase, botToken, chatID string, client *http.Client) *TelegramNotifier {
	n := NewTelegramNotifier(botToken, chatID, client)
	n.apiBase = apiBase
	return n
}

// Notify sends the message to the configured chat.
func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{
		"chat_id": {n.chatID},
		"text":    {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	n.logger.Debug("Telegram notification delivered", zap.String("chat_id", n.chatID))
	return nil
}
