package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs ExportParquet on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers an export of ix into dir at every tick of spec, a
// standard five-field cron expression or descriptor such as "@hourly".
func NewScheduler(ix *Indexer, spec, dir string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(spec, func() {
		if _, err := ix.ExportParquet(context.Background(), dir); err != nil {
			logger.Error("scheduled export failed", "dir", dir, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: export schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled exports in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running export to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("export still running at shutdown")
	}
}
