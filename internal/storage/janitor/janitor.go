package janitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/wb-go/wbf/zlog"
)

// store lists and removes expired cache objects.
type store interface {
	ListExpired(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, path string) error
}

// Janitor periodically removes expired screenshots from the cache.
type Janitor struct {
	store  store
	prefix string
	cron   *cron.Cron
}

// New creates a Janitor sweeping objects under prefix.
func New(s store, prefix string) *Janitor {
	return &Janitor{store: s, prefix: prefix, cron: cron.New()}
}

// Start schedules Sweep on the given cron spec and starts the scheduler.
// Sweeps run with ctx and stop being scheduled once Stop is called.
func (j *Janitor) Start(ctx context.Context, spec string) error {
	_, err := j.cron.AddFunc(spec, func() {
		n, err := j.Sweep(ctx)
		if err != nil {
			zlog.Logger.Err(err).Int("removed", n).Msg("cache sweep failed")
			return
		}
		zlog.Logger.Info().Int("removed", n).Msg("cache sweep finished")
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}

	j.cron.Start()
	zlog.Logger.Info().Str("schedule", spec).Str("prefix", j.prefix).Msg("cache janitor started")

	return nil
}

// Stop stops scheduling sweeps and waits for a running one to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes every expired object and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	paths, err := j.store.ListExpired(ctx, j.prefix)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if err := j.store.Delete(ctx, p); err != nil {
			zlog.Logger.Warn().Err(err).Str("path", p).Msg("failed to delete expired screenshot")
			continue
		}
		removed++
	}

	return removed, nil
}
