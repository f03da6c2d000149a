package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	"github.com/riskibarqy/nba-stats/internal/platform/textnorm"
)

const (
	defaultPlayerListLimit = 10
	maxPlayerListLimit     = 100
	seasonAttachWorkers    = 4
)

// PlayerWithSeasons is a player record with its seasons, most recent first.
type PlayerWithSeasons struct {
	Player  player.Player
	Seasons []season.Season
}

type PlayerService struct {
	playerRepo player.Repository
	seasonRepo season.Repository
	now        func() time.Time
}

func NewPlayerService(playerRepo player.Repository, seasonRepo season.Repository) *PlayerService {
	return &PlayerService{
		playerRepo: playerRepo,
		seasonRepo: seasonRepo,
		now:        time.Now,
	}
}

func (s *PlayerService) GetPlayer(ctx context.Context, id int64) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.GetPlayer")
	defer span.End()

	if id <= 0 {
		return player.Player{}, fmt.Errorf("%w: player id must be greater than zero", ErrInvalidInput)
	}

	item, exists, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return player.Player{}, storageError("get player", err)
	}
	if !exists {
		return player.Player{}, fmt.Errorf("%w: player=%d", ErrNotFound, id)
	}

	return item, nil
}

// FindPlayersByName matches query against player names ignoring case and diacritics.
func (s *PlayerService) FindPlayersByName(ctx context.Context, query string, limit int) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.FindPlayersByName")
	defer span.End()

	folded := textnorm.Fold(query)
	if folded == "" {
		return nil, fmt.Errorf("%w: name query is required", ErrInvalidInput)
	}

	items, err := s.playerRepo.SearchByName(ctx, folded, normalizeListLimit(limit))
	if err != nil {
		return nil, storageError("search players by name", err)
	}

	return items, nil
}

func (s *PlayerService) RandomPlayers(ctx context.Context, limit int) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.RandomPlayers")
	defer span.End()

	items, err := s.playerRepo.Random(ctx, normalizeListLimit(limit))
	if err != nil {
		return nil, storageError("list random players", err)
	}

	return items, nil
}

func (s *PlayerService) SearchPlayersWithSeasons(ctx context.Context, query string, limit int) ([]PlayerWithSeasons, error) {
	items, err := s.FindPlayersByName(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return s.attachSeasons(ctx, items)
}

func (s *PlayerService) RandomPlayersWithSeasons(ctx context.Context, limit int) ([]PlayerWithSeasons, error) {
	items, err := s.RandomPlayers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.attachSeasons(ctx, items)
}

func (s *PlayerService) attachSeasons(ctx context.Context, items []player.Player) ([]PlayerWithSeasons, error) {
	mapper := iter.Mapper[player.Player, PlayerWithSeasons]{MaxGoroutines: seasonAttachWorkers}
	return mapper.MapErr(items, func(item *player.Player) (PlayerWithSeasons, error) {
		seasons, err := s.seasonRepo.ListByPlayer(ctx, item.ID)
		if err != nil {
			return PlayerWithSeasons{}, storageError(fmt.Sprintf("list seasons player=%d", item.ID), err)
		}
		return PlayerWithSeasons{Player: *item, Seasons: seasons}, nil
	})
}

// GetSeasons returns the player's seasons ordered by season id, most recent first.
func (s *PlayerService) GetSeasons(ctx context.Context, playerID int64) ([]season.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.GetSeasons")
	defer span.End()

	if _, err := s.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}

	items, err := s.seasonRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, storageError("list seasons", err)
	}

	return items, nil
}

func (s *PlayerService) GetSeason(ctx context.Context, playerID int64, seasonID string) (season.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.GetSeason")
	defer span.End()

	seasonID = strings.TrimSpace(seasonID)
	if !season.ValidSeasonID(seasonID) {
		return season.Season{}, fmt.Errorf("%w: season id %q must look like 2023-24", ErrInvalidInput, seasonID)
	}

	item, exists, err := s.seasonRepo.Get(ctx, playerID, seasonID)
	if err != nil {
		return season.Season{}, storageError("get season", err)
	}
	if !exists {
		return season.Season{}, fmt.Errorf("%w: player=%d season=%s", ErrNotFound, playerID, seasonID)
	}

	return item, nil
}

// UpsertPlayerStats replaces the player's latest stats and stamps them with the current time.
func (s *PlayerService) UpsertPlayerStats(ctx context.Context, playerID int64, stats player.Stats) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.UpsertPlayerStats")
	defer span.End()

	if playerID <= 0 {
		return player.Player{}, fmt.Errorf("%w: player id must be greater than zero", ErrInvalidInput)
	}
	if stats == nil {
		stats = player.Stats{}
	}

	if err := s.playerRepo.UpdateStats(ctx, playerID, stats.Clone(), s.now().UTC()); err != nil {
		return player.Player{}, storageError("update player stats", err)
	}

	return s.GetPlayer(ctx, playerID)
}

// UpsertSeason validates fields and replaces the (player, season) record.
func (s *PlayerService) UpsertSeason(ctx context.Context, playerID int64, seasonID string, fields map[string]any) (season.Season, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.UpsertSeason")
	defer span.End()

	item, err := season.FromFields(playerID, seasonID, fields)
	if err != nil {
		return season.Season{}, err
	}

	if err := s.seasonRepo.Upsert(ctx, item); err != nil {
		return season.Season{}, storageError("upsert season", err)
	}

	return item, nil
}

func (s *PlayerService) UpsertProfile(ctx context.Context, profile player.Profile) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.UpsertProfile")
	defer span.End()

	profile.FullName = strings.TrimSpace(profile.FullName)
	if err := profile.Validate(); err != nil {
		return player.Player{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.playerRepo.Upsert(ctx, profile); err != nil {
		return player.Player{}, storageError("upsert player profile", err)
	}

	return s.GetPlayer(ctx, profile.ID)
}

func normalizeListLimit(limit int) int {
	if limit <= 0 {
		return defaultPlayerListLimit
	}
	return min(limit, maxPlayerListLimit)
}
