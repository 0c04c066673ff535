package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"cargo-watcher/internal/core/config"
	"cargo-watcher/internal/core/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(ctx context.Context) error {
	return s.err
}

// TestNew verifies that New creates a Server with the correct configuration.
func TestNew(t *testing.T) {
	cfg := &config.AppConfig{
		ServerPort: 8080,
	}

	logger.Init("development", "debug")
	srv := New(cfg, nil)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.App)
	assert.Equal(t, cfg, srv.cfg)
}

// TestServer_Health verifies /healthz reports dependency state.
func TestServer_Health(t *testing.T) {
	logger.Init("development", "error")

	t.Run("AllHealthy", func(t *testing.T) {
		srv := New(&config.AppConfig{ServerPort: 8080}, map[string]Pinger{
			"store": stubPinger{},
		})

		resp, err := srv.App.Test(httptest.NewRequest("GET", "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("DependencyDown", func(t *testing.T) {
		srv := New(&config.AppConfig{ServerPort: 8080}, map[string]Pinger{
			"store": stubPinger{err: errors.New("database locked")},
			"cache": stubPinger{},
		})

		resp, err := srv.App.Test(httptest.NewRequest("GET", "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("NilDependencySkipped", func(t *testing.T) {
		srv := New(&config.AppConfig{ServerPort: 8080}, map[string]Pinger{
			"cache": nil,
		})

		resp, err := srv.App.Test(httptest.NewRequest("GET", "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

// TestServer_Run_Error verifies that Run returns an error when binding fails (e.g., privileged port).
func TestServer_Run_Error(t *testing.T) {
	// Privileged port 1 should fail
	cfg := &config.AppConfig{
		ServerPort: 1,
	}
	logger.Init("development", "error")

	srv := New(cfg, nil)

	errCh := make(chan error)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(1 * time.Second):
		srv.Shutdown()
		t.Log("Server unexpectedly started or timed out on Error test")
	}
}
