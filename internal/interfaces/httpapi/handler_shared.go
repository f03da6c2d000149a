package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/nba-stats/internal/domain/analytics"
	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/playerstats"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/usecase"
)

type Handler struct {
	playerService    *usecase.PlayerService
	statsService     *usecase.StatsService
	analyticsService *usecase.AnalyticsService
	refreshWorker    *usecase.RefreshWorker
	refreshScheduler *usecase.RefreshScheduler
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	playerService *usecase.PlayerService,
	statsService *usecase.StatsService,
	analyticsService *usecase.AnalyticsService,
	refreshWorker *usecase.RefreshWorker,
	refreshScheduler *usecase.RefreshScheduler,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		playerService:    playerService,
		statsService:     statsService,
		analyticsService: analyticsService,
		refreshWorker:    refreshWorker,
		refreshScheduler: refreshScheduler,
		logger:           logger.Named("httpapi"),
		validator:        validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// logFailure logs server-side failures at error and client errors at warn.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if mapError(ctx, err).HTTPStatus >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}

func parsePlayerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("playerID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: player id must be a positive integer, got %q", usecase.ErrInvalidInput, raw)
	}
	return id, nil
}

// parseLimit reads the optional limit query parameter. Zero means the
// service default; range clamping is left to the service.
func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: limit must be an integer, got %q", usecase.ErrInvalidInput, raw)
	}
	return v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type upsertStatsRequest struct {
	Stats map[string]float64 `json:"stats" validate:"required,min=1,dive,keys,required,max=64,endkeys"`
}

type upsertSeasonRequest struct {
	TeamAbbreviation *string  `json:"team_abbreviation" validate:"omitempty,max=8"`
	GamesPlayed      *float64 `json:"games_played" validate:"required"`
	Minutes          *float64 `json:"minutes" validate:"required"`
	Points           *float64 `json:"points" validate:"required"`
	Assists          *float64 `json:"assists" validate:"required"`
	Rebounds         *float64 `json:"rebounds" validate:"required"`
	Steals           *float64 `json:"steals" validate:"required"`
	Blocks           *float64 `json:"blocks" validate:"required"`
	FieldGoalPct     *float64 `json:"fg_pct" validate:"required"`
	ThreePointPct    *float64 `json:"fg3_pct" validate:"required"`
	FreeThrowPct     *float64 `json:"ft_pct" validate:"required"`
}

// fields hands the payload to season.FromFields, which owns range checks.
func (req upsertSeasonRequest) fields() map[string]any {
	out := map[string]any{
		season.FieldGamesPlayed:   *req.GamesPlayed,
		season.FieldMinutes:       *req.Minutes,
		season.FieldPoints:        *req.Points,
		season.FieldAssists:       *req.Assists,
		season.FieldRebounds:      *req.Rebounds,
		season.FieldSteals:        *req.Steals,
		season.FieldBlocks:        *req.Blocks,
		season.FieldFieldGoalPct:  *req.FieldGoalPct,
		season.FieldThreePointPct: *req.ThreePointPct,
		season.FieldFreeThrowPct:  *req.FreeThrowPct,
	}
	if req.TeamAbbreviation != nil {
		out[season.FieldTeamAbbreviation] = *req.TeamAbbreviation
	}
	return out
}

type playerDTO struct {
	ID           int64              `json:"id"`
	FullName     string             `json:"fullName"`
	Team         string             `json:"team,omitempty"`
	Position     string             `json:"position,omitempty"`
	JerseyNumber string             `json:"jerseyNumber,omitempty"`
	LatestStats  map[string]float64 `json:"latestStats,omitempty"`
	LastUpdated  string             `json:"lastUpdated,omitempty"`
}

type playerWithSeasonsDTO struct {
	playerDTO
	Seasons []seasonDTO `json:"seasons"`
}

type seasonDTO struct {
	PlayerID         int64   `json:"playerId"`
	SeasonID         string  `json:"seasonId"`
	TeamAbbreviation string  `json:"teamAbbreviation,omitempty"`
	GamesPlayed      int     `json:"gamesPlayed"`
	Minutes          float64 `json:"minutes"`
	Points           int     `json:"points"`
	Assists          int     `json:"assists"`
	Rebounds         int     `json:"rebounds"`
	Steals           int     `json:"steals"`
	Blocks           int     `json:"blocks"`
	FieldGoalPct     float64 `json:"fgPct"`
	ThreePointPct    float64 `json:"fg3Pct"`
	FreeThrowPct     float64 `json:"ftPct"`
}

type playerStatsDTO struct {
	PlayerID  int64              `json:"playerId"`
	FullName  string             `json:"fullName"`
	Team      string             `json:"team,omitempty"`
	Position  string             `json:"position,omitempty"`
	Headline  map[string]float64 `json:"headline"`
	Latest    map[string]float64 `json:"latest"`
	Career    []seasonDTO        `json:"career"`
	FetchedAt string             `json:"fetchedAt"`
}

type trendDTO struct {
	Direction  string   `json:"direction"`
	Magnitude  float64  `json:"magnitude"`
	Percentage *float64 `json:"percentage"`
}

type comparisonDTO struct {
	Value1           float64  `json:"value1"`
	Value2           float64  `json:"value2"`
	Difference       float64  `json:"difference"`
	PercentageChange *float64 `json:"percentageChange"`
}

type analyticsSummaryDTO struct {
	PlayerID      int64               `json:"playerId"`
	SeasonCount   int                 `json:"seasonCount"`
	LatestSeason  string              `json:"latestSeason"`
	Trends        map[string]trendDTO `json:"trends"`
	CareerHighs   map[string]float64  `json:"careerHighs"`
	Averages      map[string]float64  `json:"averages"`
	LatestPerGame map[string]float64  `json:"latestPerGame"`
}

type seasonAdvancedDTO struct {
	SeasonID   string             `json:"seasonId"`
	Efficiency float64            `json:"efficiency"`
	PerGame    map[string]float64 `json:"perGame"`
	PerMinute  map[string]float64 `json:"perMinute"`
}

type seasonComparisonDTO struct {
	PlayerID   int64                    `json:"playerId"`
	FromSeason string                   `json:"fromSeason"`
	ToSeason   string                   `json:"toSeason"`
	Stats      map[string]comparisonDTO `json:"stats"`
}

type predictionDTO struct {
	PlayerID  int64              `json:"playerId"`
	BasedOn   []string           `json:"basedOn"`
	Predicted map[string]float64 `json:"predicted"`
}

type refreshQueuedDTO struct {
	PlayerID int64 `json:"playerId"`
	Queued   bool  `json:"queued"`
	Pending  int   `json:"pending"`
}

type refreshStatusDTO struct {
	Running             bool   `json:"running"`
	Processed           int    `json:"processed"`
	Failed              int    `json:"failed"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	LastPlayerID        int64  `json:"lastPlayerId,omitempty"`
	LastError           string `json:"lastError,omitempty"`
	LastAttempt         string `json:"lastAttempt,omitempty"`
	LastSuccess         string `json:"lastSuccess,omitempty"`
	Queued              int    `json:"queued"`
	NextSweep           string `json:"nextSweep,omitempty"`
}

type staleSweepDTO struct {
	Candidates int    `json:"candidates"`
	Queued     int    `json:"queued"`
	Cutoff     string `json:"cutoff"`
}

func playerToDTO(p player.Player) playerDTO {
	return playerDTO{
		ID:           p.ID,
		FullName:     p.FullName,
		Team:         p.Team,
		Position:     p.Position,
		JerseyNumber: p.JerseyNumber,
		LatestStats:  p.LatestStats,
		LastUpdated:  formatTime(p.LastUpdated),
	}
}

func seasonToDTO(s season.Season) seasonDTO {
	return seasonDTO{
		PlayerID:         s.PlayerID,
		SeasonID:         s.SeasonID,
		TeamAbbreviation: s.TeamAbbreviation,
		GamesPlayed:      s.GamesPlayed,
		Minutes:          s.Minutes,
		Points:           s.Points,
		Assists:          s.Assists,
		Rebounds:         s.Rebounds,
		Steals:           s.Steals,
		Blocks:           s.Blocks,
		FieldGoalPct:     s.FieldGoalPct,
		ThreePointPct:    s.ThreePointPct,
		FreeThrowPct:     s.FreeThrowPct,
	}
}

func seasonsToDTO(items []season.Season) []seasonDTO {
	out := make([]seasonDTO, 0, len(items))
	for _, s := range items {
		out = append(out, seasonToDTO(s))
	}
	return out
}

func playersWithSeasonsToDTO(items []usecase.PlayerWithSeasons) []playerWithSeasonsDTO {
	out := make([]playerWithSeasonsDTO, 0, len(items))
	for _, item := range items {
		out = append(out, playerWithSeasonsDTO{
			playerDTO: playerToDTO(item.Player),
			Seasons:   seasonsToDTO(item.Seasons),
		})
	}
	return out
}

func payloadToDTO(p playerstats.Payload) playerStatsDTO {
	headline := p.Headline
	if headline == nil {
		headline = player.Stats{}
	}
	return playerStatsDTO{
		PlayerID:  p.PlayerID,
		FullName:  p.Info.FullName,
		Team:      p.Info.Team,
		Position:  p.Info.Position,
		Headline:  headline,
		Latest:    p.LatestStats(),
		Career:    seasonsToDTO(p.Career),
		FetchedAt: formatTime(p.FetchedAt),
	}
}

func trendsToDTO(in map[string]analytics.Trend) map[string]trendDTO {
	out := make(map[string]trendDTO, len(in))
	for key, t := range in {
		out[key] = trendDTO{
			Direction:  string(t.Direction),
			Magnitude:  t.Magnitude,
			Percentage: t.Percentage,
		}
	}
	return out
}

func comparisonsToDTO(in map[string]analytics.Comparison) map[string]comparisonDTO {
	out := make(map[string]comparisonDTO, len(in))
	for key, c := range in {
		out[key] = comparisonDTO{
			Value1:           c.Value1,
			Value2:           c.Value2,
			Difference:       c.Difference,
			PercentageChange: c.PercentageChange,
		}
	}
	return out
}
