package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/config"
	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/httpapi"
	apimw "github.com/hamed0406/nettester/internal/httpapi/middleware"
	"github.com/hamed0406/nettester/internal/logging"
	"github.com/hamed0406/nettester/internal/notify"
	"github.com/hamed0406/nettester/internal/repo/memory"
	"github.com/hamed0406/nettester/internal/scheduler"
)

func main() {
	cfg, err := config.Load(os.Getenv("NETTESTER_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := diagnose.FromConfig(logger, cfg)
	runs := memory.New(cfg.KeepRuns)

	notifiers := notify.Multi{notify.Log(func(title, text string) {
		logger.Warn("alert", zap.String("title", title), zap.String("text", text))
	})}
	if cfg.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.SlackWebhook))
	}
	alerter := scheduler.NewAlerter(memory.NewAlerts(), notifiers, scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	})
	watcher := scheduler.NewWatcher(logger, engine, runs, alerter, cfg.WatchInterface, cfg.WatchInterval)
	go watcher.Run(ctx)

	api := httpapi.NewServer(logger, engine, runs, engine.Timings)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api_shutdown", zap.Error(err))
		}
	}()

	logger.Info("api_listen",
		zap.String("addr", cfg.Addr),
		zap.String("watch_interface", cfg.WatchInterface),
		zap.Bool("slack", cfg.SlackWebhook != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("api_listen_failed", zap.Error(err))
	}
	logger.Info("api_stopped")
}
