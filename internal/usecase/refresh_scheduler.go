package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
)

type RefreshSchedulerConfig struct {
	// Spec is a standard five field cron expression.
	Spec       string
	Location   *time.Location
	StaleAfter time.Duration
	BatchSize  int
}

func DefaultRefreshSchedulerConfig() RefreshSchedulerConfig {
	return RefreshSchedulerConfig{
		Spec:       "0 4 * * *",
		Location:   time.UTC,
		StaleAfter: 24 * time.Hour,
		BatchSize:  50,
	}
}

// RefreshSweepResult summarizes one stale-player sweep.
type RefreshSweepResult struct {
	Candidates int       `json:"candidates"`
	Queued     int       `json:"queued"`
	Cutoff     time.Time `json:"cutoff"`
}

// RefreshScheduler periodically queues players whose stored stats are older
// than StaleAfter, or were never fetched.
type RefreshScheduler struct {
	playerRepo player.Repository
	stats      *StatsService
	logger     *logging.Logger
	metrics    *metrics.Recorder
	cfg        RefreshSchedulerConfig
	now        func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRefreshScheduler(
	playerRepo player.Repository,
	stats *StatsService,
	logger *logging.Logger,
	recorder *metrics.Recorder,
	cfg RefreshSchedulerConfig,
) *RefreshScheduler {
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultRefreshSchedulerConfig()
	if cfg.Spec == "" {
		cfg.Spec = defaults.Spec
	}
	if cfg.Location == nil {
		cfg.Location = defaults.Location
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaults.StaleAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}

	return &RefreshScheduler{
		playerRepo: playerRepo,
		stats:      stats,
		logger:     logger.Named("refresh_scheduler"),
		metrics:    recorder,
		cfg:        cfg,
		now:        stats.now,
	}
}

// Start registers the sweep with cron. Overlapping runs are skipped.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cronLog := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(s.cfg.Spec, func() {
		if _, err := s.RunOnce(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "scheduled stale refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("%w: invalid refresh schedule %q: %v", ErrInvalidInput, s.cfg.Spec, err)
	}

	c.Start()
	s.cron = c
	s.logger.Info("refresh scheduler started", "schedule", s.cfg.Spec, "timezone", s.cfg.Location.String())
	return nil
}

// Stop prevents new runs and waits for a running sweep to finish.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// NextRun reports when the sweep fires next, or zero when the scheduler is not running.
func (s *RefreshScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce queues up to BatchSize stale players, oldest first.
func (s *RefreshScheduler) RunOnce(ctx context.Context) (RefreshSweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshScheduler.RunOnce")
	defer span.End()

	cutoff := s.now().UTC().Add(-s.cfg.StaleAfter)
	result := RefreshSweepResult{Cutoff: cutoff}

	players, err := s.playerRepo.ListStale(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		err = storageError("list stale players", err)
		s.metrics.ObserveSchedulerRun(err)
		return result, err
	}

	result.Candidates = len(players)
	for _, item := range players {
		if s.stats.QueueRefresh(item.ID) {
			result.Queued++
		}
	}
	s.metrics.ObserveSchedulerRun(nil)
	s.logger.InfoContext(ctx, "stale refresh sweep queued players",
		"candidates", result.Candidates,
		"queued", result.Queued,
		"cutoff", cutoff,
	)

	return result, nil
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
