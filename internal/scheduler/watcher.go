package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/repo"
)

// Starter launches one diagnosis. *diagnose.Engine implements it.
type Starter interface {
	Start(iface string) *diagnose.Run
}

// Watcher re-diagnoses one interface on a fixed interval. A tick is
// skipped when another run is still in flight.
type Watcher struct {
	Logger    *zap.Logger
	Engine    Starter
	Runs      repo.RunStore
	Alerter   *Alerter // optional
	Interface string
	Interval  time.Duration
}

func NewWatcher(
	logger *zap.Logger,
	engine Starter,
	runs repo.RunStore,
	alerter *Alerter,
	iface string,
	interval time.Duration,
) *Watcher {
	if interval < 0 {
		interval = 0
	}
	return &Watcher{
		Logger:    logger,
		Engine:    engine,
		Runs:      runs,
		Alerter:   alerter,
		Interface: iface,
		Interval:  interval,
	}
}

// Run does an immediate pass, then one per tick, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if w.Interval == 0 || w.Interface == "" {
		w.Logger.Info("watcher_disabled")
		return
	}
	t := time.NewTicker(w.Interval)
	defer t.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("watcher_stopped")
			return
		case <-t.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	run, err := w.Runs.Launch(ctx, func() *diagnose.Run { return w.Engine.Start(w.Interface) })
	if errors.Is(err, repo.ErrRunInFlight) {
		w.Logger.Debug("watcher_skip_busy", zap.String("interface", w.Interface))
		return
	}
	if err != nil {
		w.Logger.Warn("watcher_launch_error", zap.String("interface", w.Interface), zap.Error(err))
		return
	}

	select {
	case <-run.Done():
	case <-ctx.Done():
		return
	}

	s := run.Summary()
	w.Logger.Info("watcher_checked",
		zap.String("run_id", s.ID),
		zap.String("interface", s.Interface),
		zap.String("verdict", string(s.Verdict)),
		zap.String("fault", string(s.Fault)),
	)
	if w.Alerter != nil {
		if err := w.Alerter.Observe(ctx, run); err != nil {
			w.Logger.Warn("watcher_alert_error", zap.String("interface", s.Interface), zap.Error(err))
		}
	}
}
