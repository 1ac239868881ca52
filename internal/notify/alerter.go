package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/repo"
)

// AlerterConfig controls when a health transition turns into a sent
// notification.
type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration
	PollInterval    time.Duration
}

// Alerter periodically scans a set of backends for health transitions
// and forwards DOWN/RECOVERED events to a Notifier, with per-backend
// cooldown tracked in an AlertStore. It is a polling observer of
// domain.Backend.Healthy(), not a participant in the poller's own
// health classification.
type Alerter struct {
	backends func() []*domain.Backend
	alertDB  repo.AlertStore
	notifier Notifier
	cfg      AlerterConfig
}

func NewAlerter(backends func() []*domain.Backend, alertDB repo.AlertStore, notifier Notifier, cfg AlerterConfig) *Alerter {
	return &Alerter{backends: backends, alertDB: alertDB, notifier: notifier, cfg: cfg}
}

func (a *Alerter) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.PollInterval)
	defer t.Stop()

	_ = a.scanOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_ = a.scanOnce(ctx)
		}
	}
}

func (a *Alerter) scanOnce(ctx context.Context) error {
	now := time.Now()

	for _, b := range a.backends() {
		healthy := b.Healthy()
		rec, err := a.alertDB.GetAlert(ctx, b.ID)
		if err != nil {
			continue
		}

		stateChanged := rec == nil || rec.LastHealthy != healthy

		cooled := true
		if rec != nil && rec.LastSentAt != nil {
			cooled = now.Sub(*rec.LastSentAt) >= a.cfg.Cooldown
		}

		downAlert := stateChanged && !healthy && cooled
		recoveryAlert := stateChanged && healthy && a.cfg.AlertOnRecovery

		if downAlert || recoveryAlert {
			title := "Backend DOWN"
			if healthy {
				title = "Backend RECOVERED"
			}
			text := fmt.Sprintf("Backend: %s\nHealthy: %t\nChanged: %s",
				b.DisplayName, healthy, b.HealthChanged().Format(time.RFC3339))

			_ = a.notifier.Send(ctx, title, text)
			_ = a.alertDB.SetAlert(ctx, b.ID, healthy, now)
			continue
		}

		if stateChanged {
			// Keep the last-sent time so the cooldown still applies to
			// the next DOWN alert.
			var sentAt time.Time
			if rec != nil && rec.LastSentAt != nil {
				sentAt = *rec.LastSentAt
			}
			_ = a.alertDB.SetAlert(ctx, b.ID, healthy, sentAt)
		}
	}

	return nil
}
