package httpclient

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"cargo-watcher/internal/core/logger"

	"go.uber.org/zap"
)

// defaultTimeout bounds portal and notifier requests when the caller passes 0.
const defaultTimeout = 10 * time.Second

// LoggingRoundTripper captures request details for debugging.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger.Get().Debug("HTTP Request Started",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.Get().Error("HTTP Request Failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Get().Debug("HTTP Request Completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware. A zero timeout
// selects the default.
func NewClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: http.DefaultTransport,
		},
		Timeout: timeout,
	}
}

// NewSessionClient returns a logging client with a cookie jar, so a portal
// session established by the login request is carried across redirects.
func NewSessionClient(timeout time.Duration) *http.Client {
	client := NewClient(timeout)
	// cookiejar.New never fails with nil options.
	jar, _ := cookiejar.New(nil)
	client.Jar = jar
	return client
}
