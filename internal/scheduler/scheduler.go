// Package scheduler runs dashboard refreshes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"silverpulse/internal/infrastructure"
	"silverpulse/internal/services"
	"silverpulse/pkg/contracts/domain"
)

// Refresher runs one refresh cycle
type Refresher interface {
	Refresh(ctx context.Context, force bool, trigger string) (*domain.AppState, error)
}

// Scheduler handles periodic refreshes
type Scheduler struct {
	refresher Refresher
	cron      *cron.Cron
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	entry   cron.EntryID
	started bool
	wg      sync.WaitGroup
}

// New creates a scheduler. Each run is bounded by timeout. Overlapping runs
// are skipped.
func New(refresher Refresher, timeout time.Duration, logger *slog.Logger) *Scheduler {
	logger = infrastructure.WithComponent(logger, "scheduler")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		refresher: refresher,
		cron:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		timeout:   timeout,
		logger:    logger,
	}
}

// Start registers schedule and starts the cron loop. With runOnStart an
// immediate refresh runs in the background.
func (s *Scheduler) Start(schedule string, runOnStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	id, err := s.cron.AddFunc(schedule, func() { s.run(services.TriggerSchedule) })
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	s.entry = id
	s.cron.Start()
	s.started = true

	s.logger.Info("Refresh scheduler started", slog.String("schedule", schedule))

	if runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(services.TriggerStartup)
		}()
	}
	return nil
}

// Next returns the next scheduled run, or the zero time when stopped
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop stops the cron loop and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("Refresh scheduler stopped")
}

func (s *Scheduler) run(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("Starting scheduled refresh", slog.String("trigger", trigger))

	state, err := s.refresher.Refresh(ctx, false, trigger)
	if err != nil {
		s.logger.Error("Scheduled refresh failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		return
	}

	s.logger.Info("Scheduled refresh completed",
		slog.String("trigger", trigger),
		slog.String("cycle_id", state.CycleID),
		slog.Duration("duration", time.Since(start)))
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
