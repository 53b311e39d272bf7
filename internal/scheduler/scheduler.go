package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/weather-pipeline-service/internal/domain"
)

// Runner executes one pipeline pass over a city list.
type Runner interface {
	Run(ctx context.Context, cities []string) []domain.WeatherRecord
}

// Scheduler runs the pipeline on a fixed interval. Runs never overlap; a tick
// that arrives while a run is still going is skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cities    []string
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Scheduler. Nothing runs until Start.
func New(runner Runner, cities []string, interval time.Duration, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		cities:    append([]string(nil), cities...),
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the job and starts the underlying scheduler. The first run
// happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", s.interval)
	}
	if len(s.cities) == 0 {
		s.logger.Info("scheduler: no cities configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.runOnce)
	if err != nil {
		return fmt.Errorf("scheduler: schedule pipeline job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval, "cities", len(s.cities))
	return nil
}

func (s *Scheduler) runOnce() {
	if s.ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduler: running pipeline job")
	records := s.runner.Run(s.ctx, s.cities)
	s.logger.Info("scheduler: completed pipeline job", "records", len(records))
}

// Stop cancels an in-flight run and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
