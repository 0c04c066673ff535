package server

import (
	"context"
	"fmt"

	"cargo-watcher/internal/core/config"
	"cargo-watcher/internal/core/logger"

	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

// Pinger is a dependency whose liveness the health endpoint reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the Fiber application and configuration.
type Server struct {
	// App is the main Fiber application instance.
	App *fiber.App
	// cfg holds the application configuration.
	cfg *config.AppConfig
	// deps are pingable dependencies keyed by name.
	deps map[string]Pinger
}

// New creates a new Server instance with configured middleware. deps are the
// dependencies /healthz checks; nil entries are skipped.
func New(cfg *config.AppConfig, deps map[string]Pinger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "cargo-watcher",
	})

	app.Use(requestid.New(requestid.Config{
		Header: "X-Ray-ID",
	}))

	app.Use(fiberzap.New(fiberzap.Config{
		Logger: logger.Get(),
	}))

	s := &Server{
		App:  app,
		cfg:  cfg,
		deps: deps,
	}

	app.Get("/healthz", s.health)

	return s
}

// health reports liveness of every registered dependency.
func (s *Server) health(c *fiber.Ctx) error {
	status := fiber.Map{}
	healthy := true

	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(c.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.ServerPort)
	logger.Get().Info("Starting server", zap.String("address", addr))
	return s.App.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}
