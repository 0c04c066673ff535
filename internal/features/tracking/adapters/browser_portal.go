package adapter

import (
	"context"
	"fmt"
	"time"

	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/core/proxy"
	"cargo-watcher/internal/features/tracking/domain"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// BrowserPortalSource fetches snapshots by driving a headless browser
// through the portal login form. Fallback for when the portal stops
// inlining the tracks JSON into the plain login response.
type BrowserPortalSource struct {
	loginURL string
	login    string
	password string
	proxy    proxy.Settings
	timeout  time.Duration
	logger   *zap.Logger
}

// NewBrowserPortalSource creates a BrowserPortalSource with the given portal
// credentials and proxy settings.
func NewBrowserPortalSource(loginURL, login, password string, proxySettings proxy.Settings) *BrowserPortalSource {
	return &BrowserPortalSource{
		loginURL: loginURL,
		login:    login,
		password: password,
		proxy:    proxySettings,
		timeout:  60 * time.Second,
		logger:   logger.Get(),
	}
}

// Fetch logs in through a headless browser and extracts the tracks from the
// resulting account page. Browser automation failures surface as errors, not
// panics.
func (s *BrowserPortalSource) Fetch(ctx context.Context) (records []domain.TrackingRecord, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// rod's Must API panics on failure; contain it to this cycle.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("browser automation failed: %v", rec)
		}
	}()

	s.logger.Debug("Launching browser...",
		zap.Bool("proxy_enabled", s.proxy.HasProxy()),
		zap.String("proxy_host", s.proxy.HostPort()),
	)

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if s.proxy.HasProxy() {
		l = l.Proxy(s.proxy.HostPort())
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	if s.proxy.HasProxy() && s.proxy.Username != "" && s.proxy.Password != "" {
		wait := browser.MustHandleAuth(s.proxy.Username, s.proxy.Password)
		// The wait func panics on its own goroutine, out of reach of the
		// recover above; contain it there too.
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Warn("Proxy auth handling failed", zap.Any("reason", rec))
				}
			}()
			wait()
		}()
	}

	page := browser.MustPage(s.loginURL)
	page.MustWaitLoad()

	page.MustElement("#login").MustInput(s.login)
	page.MustElement("#password").MustInput(s.password)
	page.MustElement("form button").MustClick()
	page.MustWaitStable()

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read account page: %w", err)
	}

	records, err = ParseTracksPage(html)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Browser snapshot fetched", zap.Int("records", len(records)))
	return records, nil
}
