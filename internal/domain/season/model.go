package season

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// ErrValidation marks a malformed season payload.
var ErrValidation = errors.New("invalid season payload")

var seasonIDPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Stat keys shared by season values, analytics and the latest-stats snapshot.
const (
	KeyGamesPlayed   = "gp"
	KeyMinutes       = "min"
	KeyPoints        = "pts"
	KeyAssists       = "ast"
	KeyRebounds      = "reb"
	KeySteals        = "stl"
	KeyBlocks        = "blk"
	KeyFieldGoalPct  = "fg_pct"
	KeyThreePointPct = "fg3_pct"
	KeyFreeThrowPct  = "ft_pct"
)

// Field names accepted by FromFields.
const (
	FieldTeamAbbreviation = "team_abbreviation"
	FieldGamesPlayed      = "games_played"
	FieldMinutes          = "minutes"
	FieldPoints           = "points"
	FieldAssists          = "assists"
	FieldRebounds         = "rebounds"
	FieldSteals           = "steals"
	FieldBlocks           = "blocks"
	FieldFieldGoalPct     = "fg_pct"
	FieldThreePointPct    = "fg3_pct"
	FieldFreeThrowPct     = "ft_pct"
)

// Season is one player's totals for one season, replaced wholesale on upsert.
// Percentages are fractions in [0, 1].
type Season struct {
	PlayerID         int64
	SeasonID         string
	TeamAbbreviation string
	GamesPlayed      int
	Minutes          float64
	Points           int
	Assists          int
	Rebounds         int
	Steals           int
	Blocks           int
	FieldGoalPct     float64
	ThreePointPct    float64
	FreeThrowPct     float64
}

func (s Season) Validate() error {
	if s.PlayerID <= 0 {
		return fmt.Errorf("%w: player id must be greater than zero", ErrValidation)
	}
	if !ValidSeasonID(s.SeasonID) {
		return fmt.Errorf("%w: season id %q must look like 2023-24", ErrValidation, s.SeasonID)
	}
	if s.Minutes < 0 || math.IsNaN(s.Minutes) {
		return fmt.Errorf("%w: minutes must be >= 0", ErrValidation)
	}

	counts := []struct {
		name  string
		value int
	}{
		{FieldGamesPlayed, s.GamesPlayed},
		{FieldPoints, s.Points},
		{FieldAssists, s.Assists},
		{FieldRebounds, s.Rebounds},
		{FieldSteals, s.Steals},
		{FieldBlocks, s.Blocks},
	}
	for _, c := range counts {
		if c.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrValidation, c.name)
		}
	}

	pcts := []struct {
		name  string
		value float64
	}{
		{FieldFieldGoalPct, s.FieldGoalPct},
		{FieldThreePointPct, s.ThreePointPct},
		{FieldFreeThrowPct, s.FreeThrowPct},
	}
	for _, p := range pcts {
		if math.IsNaN(p.value) || p.value < 0 || p.value > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", ErrValidation, p.name)
		}
	}

	return nil
}

func ValidSeasonID(id string) bool {
	return seasonIDPattern.MatchString(id)
}

// Value returns the stat named by key, or false for an unknown key.
func (s Season) Value(key string) (float64, bool) {
	switch key {
	case KeyGamesPlayed:
		return float64(s.GamesPlayed), true
	case KeyMinutes:
		return s.Minutes, true
	case KeyPoints:
		return float64(s.Points), true
	case KeyAssists:
		return float64(s.Assists), true
	case KeyRebounds:
		return float64(s.Rebounds), true
	case KeySteals:
		return float64(s.Steals), true
	case KeyBlocks:
		return float64(s.Blocks), true
	case KeyFieldGoalPct:
		return s.FieldGoalPct, true
	case KeyThreePointPct:
		return s.ThreePointPct, true
	case KeyFreeThrowPct:
		return s.FreeThrowPct, true
	default:
		return 0, false
	}
}

// FromFields builds a season from loosely typed fields, as received from a
// request body or an import row. Every numeric field is required.
func FromFields(playerID int64, seasonID string, fields map[string]any) (Season, error) {
	s := Season{
		PlayerID: playerID,
		SeasonID: strings.TrimSpace(seasonID),
	}
	if raw, ok := fields[FieldTeamAbbreviation]; ok && raw != nil {
		team, ok := raw.(string)
		if !ok {
			return Season{}, fmt.Errorf("%w: %s must be a string", ErrValidation, FieldTeamAbbreviation)
		}
		s.TeamAbbreviation = strings.ToUpper(strings.TrimSpace(team))
	}

	counts := []struct {
		name string
		dst  *int
	}{
		{FieldGamesPlayed, &s.GamesPlayed},
		{FieldPoints, &s.Points},
		{FieldAssists, &s.Assists},
		{FieldRebounds, &s.Rebounds},
		{FieldSteals, &s.Steals},
		{FieldBlocks, &s.Blocks},
	}
	for _, c := range counts {
		v, err := numberField(fields, c.name)
		if err != nil {
			return Season{}, err
		}
		if v != math.Trunc(v) {
			return Season{}, fmt.Errorf("%w: %s must be a whole number", ErrValidation, c.name)
		}
		*c.dst = int(v)
	}

	reals := []struct {
		name string
		dst  *float64
	}{
		{FieldMinutes, &s.Minutes},
		{FieldFieldGoalPct, &s.FieldGoalPct},
		{FieldThreePointPct, &s.ThreePointPct},
		{FieldFreeThrowPct, &s.FreeThrowPct},
	}
	for _, r := range reals {
		v, err := numberField(fields, r.name)
		if err != nil {
			return Season{}, err
		}
		*r.dst = v
	}

	if err := s.Validate(); err != nil {
		return Season{}, err
	}
	return s, nil
}

func numberField(fields map[string]any, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s is required", ErrValidation, name)
	}

	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int32:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be numeric", ErrValidation, name)
		}
		v = f
	default:
		return 0, fmt.Errorf("%w: %s must be numeric", ErrValidation, name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrValidation, name)
	}
	return v, nil
}
