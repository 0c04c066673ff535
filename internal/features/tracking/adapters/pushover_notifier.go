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

// PushoverNotifier delivers notifications through the Pushover messages API.
type PushoverNotifier struct {
	apiURL    string
	appToken  string
	userToken string
	sound     string
	client    *http.Client
	logger    *zap.Logger
}

// NewPushoverNotifier creates a PushoverNotifier. apiURL is the full
// messages endpoint, e.g. https://api.pushover.net/1/messages.json.
func NewPushoverNotifier(apiURL, appToken, userToken string, client *http.Client) *PushoverNotifier {
	return &PushoverNotifier{
		apiURL:    apiURL,
		appToken:  appToken,
		userToken: userToken,
		sound:     "magic",
		client:    client,
		logger:    logger.Get(),
	}
}

// Notify sends the message to the configured user.
func (n *PushoverNotifier) Notify(ctx context.Context, message string) error {
	form := url.Values{
		"token":   {n.appToken},
		"user":    {n.userToken},
		"message": {message},
		"sound":   {n.sound},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build pushover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover returned status %d", resp.StatusCode)
	}

	n.logger.Debug("Pushover notification delivered")
	return nil
}
