package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/sunny-weather/internal/async"
)

const runTimeout = 30 * time.Second

// Refresher restarts the weather refresh for the selected place.
type Refresher interface {
	Refresh(ctx context.Context) (uint64, error)
}

// Recorder counts scheduler runs. It may be nil.
type Recorder interface {
	RefreshScheduled(result string)
}

// Scheduler periodically refreshes the weather of the selected place.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
	recorder  Recorder
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(refresher Refresher, interval time.Duration, logger *slog.Logger, recorder Recorder) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		logger:    logger,
		recorder:  recorder,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: refresh interval not set; periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	gen, err := s.refresher.Refresh(ctx)
	switch {
	case async.KindOf(err) == async.KindNotFound:
		s.logger.Debug("scheduler: no place selected; skipping refresh")
		s.record("skipped")
	case err != nil:
		s.logger.Warn("scheduler: refresh failed", "error", err)
		s.record("error")
	default:
		s.logger.Debug("scheduler: refresh started", "generation", gen)
		s.record("started")
	}
}

func (s *Scheduler) record(result string) {
	if s.recorder != nil {
		s.recorder.RefreshScheduled(result)
	}
}
