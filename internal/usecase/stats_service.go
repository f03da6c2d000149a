package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/playerstats"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	"github.com/riskibarqy/nba-stats/internal/platform/cache"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
	"github.com/riskibarqy/nba-stats/internal/platform/workqueue"
)

// StatsServiceConfig holds the freshness policy. Ages are measured from the
// moment a fetch completed.
type StatsServiceConfig struct {
	// FreshFor is the TTL. Younger entries are served as is.
	FreshFor time.Duration
	// RefreshAfter is the staleness threshold that schedules a background refresh.
	RefreshAfter time.Duration
	// MaxAge, when positive, makes older entries cold so the read fetches synchronously.
	MaxAge        time.Duration
	FetchTimeout  time.Duration
	QueueCapacity int
}

func DefaultStatsServiceConfig() StatsServiceConfig {
	return StatsServiceConfig{
		FreshFor:      time.Hour,
		RefreshAfter:  6 * time.Hour,
		FetchTimeout:  20 * time.Second,
		QueueCapacity: 1000,
	}
}

// StatsService serves player stats snapshots from an in-process cache and
// keeps them fresh through the external source.
type StatsService struct {
	playerRepo player.Repository
	seasonRepo season.Repository
	fetcher    playerstats.Fetcher
	now        func() time.Time
	logger     *logging.Logger
	metrics    *metrics.Recorder
	cfg        StatsServiceConfig

	cache  *cache.Store[int64, playerstats.Payload]
	queue  *workqueue.Queue[int64]
	flight singleflight.Group
}

func NewStatsService(
	playerRepo player.Repository,
	seasonRepo season.Repository,
	fetcher playerstats.Fetcher,
	now func() time.Time,
	logger *logging.Logger,
	recorder *metrics.Recorder,
	cfg StatsServiceConfig,
) *StatsService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultStatsServiceConfig()
	if cfg.FreshFor <= 0 {
		cfg.FreshFor = defaults.FreshFor
	}
	if cfg.RefreshAfter < cfg.FreshFor {
		cfg.RefreshAfter = max(defaults.RefreshAfter, cfg.FreshFor)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}

	return &StatsService{
		playerRepo: playerRepo,
		seasonRepo: seasonRepo,
		fetcher:    fetcher,
		now:        now,
		logger:     logger.Named("stats"),
		metrics:    recorder,
		cfg:        cfg,
		cache:      cache.NewStore[int64, playerstats.Payload](0, cache.WithClock[int64, playerstats.Payload](now)),
		queue:      workqueue.New[int64](cfg.QueueCapacity),
	}
}

// GetStats returns the player's stats snapshot. Only a cold read waits for the
// external source; stale entries are served immediately and, past the
// refresh threshold, queued for a background refresh.
func (s *StatsService) GetStats(ctx context.Context, playerID int64) (playerstats.Payload, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.GetStats")
	defer span.End()

	if playerID <= 0 {
		return playerstats.Payload{}, fmt.Errorf("%w: player id must be greater than zero", ErrInvalidInput)
	}

	entry, ok := s.cache.Peek(playerID)
	state := s.classify(entry, ok)
	s.metrics.ObserveCacheRead(state)

	switch state {
	case metrics.CacheFresh, metrics.CacheStale:
		return entry.Value, nil
	case metrics.CacheNeedsRefresh:
		s.QueueRefresh(playerID)
		return entry.Value, nil
	}

	return s.load(ctx, playerID, true)
}

func (s *StatsService) classify(entry cache.Entry[playerstats.Payload], ok bool) string {
	if !ok {
		return metrics.CacheCold
	}
	age := entry.Age(s.now())
	switch {
	case s.cfg.MaxAge > 0 && age >= s.cfg.MaxAge:
		return metrics.CacheCold
	case age < s.cfg.FreshFor:
		return metrics.CacheFresh
	case age < s.cfg.RefreshAfter:
		return metrics.CacheStale
	default:
		return metrics.CacheNeedsRefresh
	}
}

// QueueRefresh schedules a background refresh. It reports false when the id is
// already queued or being refreshed, or when the queue is full.
func (s *StatsService) QueueRefresh(playerID int64) bool {
	if playerID <= 0 {
		return false
	}
	if s.queue.Add(playerID) {
		s.metrics.SetQueueDepth(s.queue.Len())
		return true
	}
	if !s.queue.Contains(playerID) {
		s.metrics.ObserveQueueRejected()
		s.logger.Warn("refresh queue is full, dropping player", "player_id", playerID, "capacity", s.cfg.QueueCapacity)
	}
	return false
}

// PendingRefreshes is the number of ids waiting for the worker.
func (s *StatsService) PendingRefreshes() int {
	return s.queue.Len()
}

// Refresh fetches the player's snapshot and writes it through to storage and
// the cache. Concurrent calls for one id share a single fetch.
func (s *StatsService) Refresh(ctx context.Context, playerID int64) (playerstats.Payload, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.Refresh")
	defer span.End()

	return s.load(ctx, playerID, false)
}

// load runs one fetch per id at a time. A cold read that lost the race to
// another load returns the entry that load cached instead of fetching again.
// The shared fetch is detached from the caller that started it, so one caller
// going away never fails the others; each caller still stops waiting on its own ctx.
func (s *StatsService) load(ctx context.Context, playerID int64, coldOnly bool) (playerstats.Payload, error) {
	shared := context.WithoutCancel(ctx)
	results := s.flight.DoChan(strconv.FormatInt(playerID, 10), func() (any, error) {
		if coldOnly {
			if entry, ok := s.cache.Peek(playerID); ok && s.classify(entry, ok) != metrics.CacheCold {
				return entry.Value, nil
			}
		}
		return s.fetchAndStore(shared, playerID)
	})

	select {
	case <-ctx.Done():
		return playerstats.Payload{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return playerstats.Payload{}, res.Err
		}
		return res.Val.(playerstats.Payload), nil
	}
}

func (s *StatsService) fetchAndStore(ctx context.Context, playerID int64) (playerstats.Payload, error) {
	_, exists, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return playerstats.Payload{}, storageError("get player", err)
	}
	if !exists {
		return playerstats.Payload{}, fmt.Errorf("%w: player=%d", ErrNotFound, playerID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	start := time.Now()
	payload, err := s.fetcher.FetchPlayerSnapshot(fetchCtx, playerID)
	cancel()
	s.metrics.ObserveFetch(time.Since(start), err)
	if err != nil {
		return playerstats.Payload{}, fetchError(playerID, err)
	}
	completedAt := s.now().UTC()
	payload = normalizePayload(playerID, payload)

	if len(payload.Career) > 0 {
		if err := s.seasonRepo.UpsertMany(ctx, playerID, payload.Career); err != nil {
			return playerstats.Payload{}, storageError("write seasons", err)
		}
	}

	err = s.playerRepo.UpdateStats(ctx, playerID, payload.LatestStats(), completedAt)
	if errors.Is(err, player.ErrOutdatedSnapshot) {
		s.logger.DebugContext(ctx, "newer stats snapshot already stored, skipping cache write", "player_id", playerID)
		return payload, nil
	}
	if err != nil {
		return playerstats.Payload{}, storageError("write latest stats", err)
	}

	if profile := payload.Profile(); profile.Validate() == nil {
		if err := s.playerRepo.Upsert(ctx, profile); err != nil {
			return playerstats.Payload{}, storageError("write player profile", err)
		}
	}

	s.cache.Put(playerID, payload, completedAt)
	return payload, nil
}

// normalizePayload pins every season to playerID without touching the fetcher's slice.
func normalizePayload(playerID int64, payload playerstats.Payload) playerstats.Payload {
	payload.PlayerID = playerID
	if len(payload.Career) == 0 {
		return payload
	}
	career := make([]season.Season, len(payload.Career))
	for i, item := range payload.Career {
		item.PlayerID = playerID
		career[i] = item
	}
	payload.Career = career
	return payload
}
