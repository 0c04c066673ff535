package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cargo-watcher/internal/core/cache"
	"cargo-watcher/internal/core/config"
	"cargo-watcher/internal/core/httpclient"
	"cargo-watcher/internal/core/logger"
	"cargo-watcher/internal/core/proxy"
	"cargo-watcher/internal/core/scheduler"
	"cargo-watcher/internal/core/server"
	trackingadapter "cargo-watcher/internal/features/tracking/adapters"
	trackinghandler "cargo-watcher/internal/features/tracking/handler"
	"cargo-watcher/internal/features/tracking/ports"
	trackingservice "cargo-watcher/internal/features/tracking/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("portal_mode", cfg.Portal.Mode),
	)

	// Item store (runs migrations on open).
	store, err := trackingadapter.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		l.Fatal("Failed to open item store", zap.Error(err))
	}
	defer store.Close()

	// Snapshot source: portal adapter, circuit breaker, optional cache.
	var source ports.SnapshotSource
	switch cfg.Portal.Mode {
	case config.PortalModeBrowser:
		source = trackingadapter.NewBrowserPortalSource(
			cfg.Portal.LoginURL, cfg.Portal.Login, cfg.Portal.Password,
			proxy.Settings{
				Enabled:  cfg.Proxy.Enabled,
				Hostname: cfg.Proxy.Hostname,
				Port:     cfg.Proxy.Port,
				Username: cfg.Proxy.Username,
				Password: cfg.Proxy.Password,
			},
		)
	default:
		source = trackingadapter.NewEmirPortalSource(
			cfg.Portal.LoginURL, cfg.Portal.Login, cfg.Portal.Password,
			httpclient.NewSessionClient(0),
		)
	}
	source = trackingadapter.NewBreakerSource(source, cfg.Portal.BreakerCooldown)

	var snapshots cache.SnapshotCache
	if cfg.Cache.RedisURL != "" {
		snapshots, err = cache.NewRedisAdapter(cfg.Cache.RedisURL)
		if err != nil {
			l.Fatal("Failed to connect snapshot cache", zap.Error(err))
		}
		defer snapshots.Close()
		source = trackingadapter.NewCachedSource(source, snapshots, cfg.Cache.SnapshotTTL)
		l.Info("Snapshot cache enabled", zap.Duration("ttl", cfg.Cache.SnapshotTTL))
	}

	// Notification sinks.
	var sinks []ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		sinks = append(sinks, trackingadapter.NewTelegramNotifier(
			cfg.Telegram.BotToken, cfg.Telegram.ChatID, httpclient.NewClient(0)))
	}
	if cfg.Pushover.AppToken != "" && cfg.Pushover.UserToken != "" {
		sinks = append(sinks, trackingadapter.NewPushoverNotifier(
			cfg.Pushover.URL, cfg.Pushover.AppToken, cfg.Pushover.UserToken, httpclient.NewClient(0)))
	}
	if len(sinks) == 0 {
		l.Fatal("No notification sink configured; set Telegram or Pushover credentials")
	}
	notifier := trackingadapter.NewMultiNotifier(sinks...)

	// Engine and trigger.
	reconciler := trackingservice.NewReconciler(source, store, notifier)
	sched := scheduler.New(cfg.PollInterval, reconciler.RunCycle)

	// Command surface.
	deps := map[string]server.Pinger{"store": store}
	if snapshots != nil {
		deps["cache"] = snapshots
	}
	srv := server.New(cfg, deps)

	watchHandler := trackinghandler.NewWatchHandler(sched, store)
	srv.App.Post("/watch/run", watchHandler.RunCycle)
	srv.App.Get("/watch/items", watchHandler.ListItems)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	g.Go(func() error {
		return srv.Run()
	})

	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		l.Fatal("Application stopped", zap.Error(err))
	}

	l.Info("Application stopped")
}
