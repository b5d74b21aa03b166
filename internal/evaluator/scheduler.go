package evaluator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs evaluation cycles on a cron schedule.
type Scheduler struct {
	evaluator *Evaluator
	schedule  cron.Schedule
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewScheduler creates a Scheduler. spec accepts standard five-field cron
// expressions and descriptors such as "@every 1m".
func NewScheduler(e *Evaluator, spec string, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule evaluation %q: %w", spec, err)
	}
	// A tick is skipped while the previous cycle is still running.
	return &Scheduler{
		evaluator: e,
		schedule:  schedule,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger,
	}, nil
}

// Run executes one cycle immediately, then runs the schedule until ctx is
// cancelled. Scheduled cycles run under ctx.
func (s *Scheduler) Run(ctx context.Context) {
	id := s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.runCycle(ctx) }))
	defer s.cron.Remove(id)

	s.runCycle(ctx)
	s.cron.Start()
	s.logger.Info("evaluation schedule started", "entries", len(s.cron.Entries()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("evaluation schedule stopped")
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if _, err := s.evaluator.RunCycle(ctx); err != nil {
		s.logger.Error("scheduled evaluation failed", "error", err)
	}
}
