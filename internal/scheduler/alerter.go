package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/nettester/internal/diagnose"
	"github.com/hamed0406/nettester/internal/domain"
	"github.com/hamed0406/nettester/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
}

type Alerter struct {
	alertDB  repo.AlertStore
	notifier interface {
		Send(context.Context, string, string) error
	}
	cfg AlerterConfig
	now func() time.Time
}

func NewAlerter(
	alertDB repo.AlertStore,
	notifier interface {
		Send(context.Context, string, string) error
	},
	cfg AlerterConfig,
) *Alerter {
	return &Alerter{
		alertDB:  alertDB,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Observe compares a finished run with the last verdict recorded for its
// interface and notifies when the verdict changed. Aborted runs carry no
// verdict and are ignored.
func (a *Alerter) Observe(ctx context.Context, run *diagnose.Run) error {
	s := run.Summary()
	if s.Verdict != domain.VerdictOK && s.Verdict != domain.VerdictFault {
		return nil
	}

	rec, err := a.alertDB.Get(ctx, s.Interface)
	if err != nil {
		return err
	}
	now := a.now()

	stateChanged := rec == nil || rec.LastFault != s.Fault

	// Cooldown only matters for fault alerts (suppresses flapping).
	cooled := true
	if rec != nil && rec.LastSentAt != nil {
		cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
	}

	faultAlert := stateChanged && s.Fault != "" && cooled
	recoveryAlert := stateChanged && s.Fault == "" && rec != nil && a.cfg.AlertOnRecovery

	if !faultAlert && !recoveryAlert {
		if stateChanged {
			return a.alertDB.Set(ctx, s.Interface, s.Fault, time.Time{})
		}
		return nil
	}

	title := fmt.Sprintf("🔴 Network FAULT on %s", s.Interface)
	if recoveryAlert {
		title = fmt.Sprintf("🟢 Network RECOVERED on %s", s.Interface)
	}

	verdict := "none"
	if s.Fault != "" {
		verdict = string(s.Fault)
	}
	gateway := s.Gateway
	if gateway == "" {
		gateway = "n/a"
	}
	text := fmt.Sprintf(
		"Interface: %s\nFault: %s\nDiagnosis: %s\nGateway: %s\nChecked: %s",
		s.Interface, verdict, lastMessage(run), gateway, s.StartedAt.Format(time.RFC3339),
	)

	// Best-effort send; the state is recorded either way.
	sendErr := a.notifier.Send(ctx, title, text)
	if err := a.alertDB.Set(ctx, s.Interface, s.Fault, now); err != nil {
		return err
	}
	return sendErr
}

func lastMessage(run *diagnose.Run) string {
	evs := run.Events.Since(0)
	if len(evs) == 0 {
		return ""
	}
	return evs[len(evs)-1].Message
}
