package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/nba-stats/internal/domain/analytics"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
)

type AnalyticsSummary struct {
	PlayerID     int64
	SeasonCount  int
	LatestSeason string
	Trends       map[string]analytics.Trend
	CareerHighs  map[string]float64
	Averages     map[string]float64
	// LatestPerGame is the per-game line of the most recent season.
	LatestPerGame map[string]float64
}

type SeasonAdvanced struct {
	SeasonID   string
	Efficiency float64
	PerGame    map[string]float64
	PerMinute  map[string]float64
}

type SeasonComparison struct {
	PlayerID   int64
	FromSeason string
	ToSeason   string
	Stats      map[string]analytics.Comparison
}

type Prediction struct {
	PlayerID int64
	// BasedOn lists the seasons used, most recent first.
	BasedOn   []string
	Predicted map[string]float64
}

// AnalyticsService computes derived metrics from stored seasons.
type AnalyticsService struct {
	players *PlayerService
}

func NewAnalyticsService(players *PlayerService) *AnalyticsService {
	return &AnalyticsService{players: players}
}

func (s *AnalyticsService) Summary(ctx context.Context, playerID int64) (AnalyticsSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalyticsService.Summary")
	defer span.End()

	seasons, err := s.seasons(ctx, playerID)
	if err != nil {
		return AnalyticsSummary{}, err
	}

	return AnalyticsSummary{
		PlayerID:      playerID,
		SeasonCount:   len(seasons),
		LatestSeason:  seasons[0].SeasonID,
		Trends:        analytics.Trends(seasons),
		CareerHighs:   analytics.CareerHighs(seasons),
		Averages:      analytics.Averages(seasons),
		LatestPerGame: analytics.PerGame(seasons[0]),
	}, nil
}

// Advanced returns per-season derived metrics, most recent season first.
func (s *AnalyticsService) Advanced(ctx context.Context, playerID int64) ([]SeasonAdvanced, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalyticsService.Advanced")
	defer span.End()

	seasons, err := s.seasons(ctx, playerID)
	if err != nil {
		return nil, err
	}

	out := make([]SeasonAdvanced, 0, len(seasons))
	for _, item := range seasons {
		out = append(out, SeasonAdvanced{
			SeasonID:   item.SeasonID,
			Efficiency: analytics.Efficiency(item),
			PerGame:    analytics.PerGame(item),
			PerMinute:  analytics.PerMinute(item),
		})
	}
	return out, nil
}

func (s *AnalyticsService) Compare(ctx context.Context, playerID int64, fromSeason, toSeason string) (SeasonComparison, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalyticsService.Compare")
	defer span.End()

	fromSeason = strings.TrimSpace(fromSeason)
	toSeason = strings.TrimSpace(toSeason)
	if !season.ValidSeasonID(fromSeason) || !season.ValidSeasonID(toSeason) {
		return SeasonComparison{}, fmt.Errorf("%w: season ids must look like 2023-24", ErrInvalidInput)
	}

	seasons, err := s.seasons(ctx, playerID)
	if err != nil {
		return SeasonComparison{}, err
	}

	var from, to *season.Season
	for i := range seasons {
		switch seasons[i].SeasonID {
		case fromSeason:
			from = &seasons[i]
		case toSeason:
			to = &seasons[i]
		}
	}
	if from == nil || to == nil {
		return SeasonComparison{}, fmt.Errorf("%w: player=%d seasons=%s,%s", ErrNotFound, playerID, fromSeason, toSeason)
	}

	return SeasonComparison{
		PlayerID:   playerID,
		FromSeason: fromSeason,
		ToSeason:   toSeason,
		Stats:      analytics.Compare(*from, *to),
	}, nil
}

func (s *AnalyticsService) Predict(ctx context.Context, playerID int64) (Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AnalyticsService.Predict")
	defer span.End()

	seasons, err := s.seasons(ctx, playerID)
	if err != nil {
		return Prediction{}, err
	}

	basedOn := make([]string, 0, 3)
	for _, item := range seasons[:min(3, len(seasons))] {
		basedOn = append(basedOn, item.SeasonID)
	}

	return Prediction{
		PlayerID:  playerID,
		BasedOn:   basedOn,
		Predicted: analytics.Predict(seasons),
	}, nil
}

// seasons loads the player's seasons, most recent first, and treats an empty
// history as not found.
func (s *AnalyticsService) seasons(ctx context.Context, playerID int64) ([]season.Season, error) {
	seasons, err := s.players.GetSeasons(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if len(seasons) == 0 {
		return nil, fmt.Errorf("%w: no seasons for player=%d", ErrNotFound, playerID)
	}
	return seasons, nil
}
