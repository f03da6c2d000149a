package cache

import (
	"context"

	"github.com/riskibarqy/nba-stats/internal/domain/season"
	basecache "github.com/riskibarqy/nba-stats/internal/platform/cache"
)

// SeasonRepository serves season reads from a per-player cache and drops a
// player's entry whenever one of their seasons is written.
type SeasonRepository struct {
	next  season.Repository
	cache *basecache.Store[int64, []season.Season]
}

func NewSeasonRepository(next season.Repository, cache *basecache.Store[int64, []season.Season]) *SeasonRepository {
	return &SeasonRepository{next: next, cache: cache}
}

func (r *SeasonRepository) ListByPlayer(ctx context.Context, playerID int64) ([]season.Season, error) {
	items, err := r.cache.GetOrLoad(ctx, playerID, func(ctx context.Context) ([]season.Season, error) {
		items, err := r.next.ListByPlayer(ctx, playerID)
		if err != nil {
			return nil, err
		}
		return append([]season.Season(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	return append([]season.Season(nil), items...), nil
}

func (r *SeasonRepository) Get(ctx context.Context, playerID int64, seasonID string) (season.Season, bool, error) {
	items, err := r.ListByPlayer(ctx, playerID)
	if err != nil {
		return season.Season{}, false, err
	}
	for _, item := range items {
		if item.SeasonID == seasonID {
			return item, true, nil
		}
	}
	return season.Season{}, false, nil
}

func (r *SeasonRepository) Upsert(ctx context.Context, s season.Season) error {
	defer r.cache.Delete(s.PlayerID)
	return r.next.Upsert(ctx, s)
}

func (r *SeasonRepository) UpsertMany(ctx context.Context, playerID int64, seasons []season.Season) error {
	defer r.cache.Delete(playerID)
	return r.next.UpsertMany(ctx, playerID, seasons)
}
