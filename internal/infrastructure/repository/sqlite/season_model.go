package sqlite

import "github.com/riskibarqy/nba-stats/internal/domain/season"

type seasonTableModel struct {
	PlayerID         int64   `db:"player_id"`
	SeasonID         string  `db:"season_id"`
	TeamAbbreviation string  `db:"team_abbreviation"`
	GamesPlayed      int     `db:"games_played"`
	Minutes          float64 `db:"minutes"`
	Points           int     `db:"points"`
	Assists          int     `db:"assists"`
	Rebounds         int     `db:"rebounds"`
	Steals           int     `db:"steals"`
	Blocks           int     `db:"blocks"`
	FieldGoalPct     float64 `db:"fg_pct"`
	ThreePointPct    float64 `db:"fg3_pct"`
	FreeThrowPct     float64 `db:"ft_pct"`
	CreatedAt        int64   `db:"created_at"`
	UpdatedAt        int64   `db:"updated_at"`
}

var seasonSelectColumns = []string{
	"player_id",
	"season_id",
	"team_abbreviation",
	"games_played",
	"minutes",
	"points",
	"assists",
	"rebounds",
	"steals",
	"blocks",
	"fg_pct",
	"fg3_pct",
	"ft_pct",
	"created_at",
	"updated_at",
}

func seasonModelFromDomain(s season.Season, nowMs int64) seasonTableModel {
	return seasonTableModel{
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
		CreatedAt:        nowMs,
		UpdatedAt:        nowMs,
	}
}

func (m seasonTableModel) toDomain() season.Season {
	return season.Season{
		PlayerID:         m.PlayerID,
		SeasonID:         m.SeasonID,
		TeamAbbreviation: m.TeamAbbreviation,
		GamesPlayed:      m.GamesPlayed,
		Minutes:          m.Minutes,
		Points:           m.Points,
		Assists:          m.Assists,
		Rebounds:         m.Rebounds,
		Steals:           m.Steals,
		Blocks:           m.Blocks,
		FieldGoalPct:     m.FieldGoalPct,
		ThreePointPct:    m.ThreePointPct,
		FreeThrowPct:     m.FreeThrowPct,
	}
}
