package memory

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor prunes sessions idle past a retention window on a cron
// schedule. It works against any backend implementing Pruner.
type Janitor struct {
	store     Pruner
	retention time.Duration
	schedule  string
	logger    zerolog.Logger
	cron      *cron.Cron
}

// NewJanitor creates a janitor. schedule is a standard cron expression
// (e.g. "0 * * * *" for hourly); retention is how long an idle session is
// kept.
func NewJanitor(store Pruner, schedule string, retention time.Duration, logger zerolog.Logger) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the schedule and begins running sweeps.
func (j *Janitor) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() {
		if err := j.Sweep(context.Background()); err != nil {
			j.logger.Error().Err(err).Msg("janitor sweep failed")
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// Sweep deletes every session whose last activity is older than the
// retention window.
func (j *Janitor) Sweep(ctx context.Context) error {
	sessions, err := j.store.Sessions(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-j.retention)
	for _, info := range sessions {
		if info.LastActivity.After(cutoff) {
			continue
		}
		if err := j.store.DeleteSession(ctx, info.ID); err != nil {
			return err
		}
		j.logger.Info().
			Str("session_id", info.ID).
			Int("messages", info.MessageCount).
			Time("last_activity", info.LastActivity).
			Msg("pruned idle session")
	}
	return nil
}
