package sqlite

import (
	"database/sql"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
)

type playerTableModel struct {
	ID           int64         `db:"id"`
	FullName     string        `db:"full_name"`
	SearchName   string        `db:"search_name"`
	Team         string        `db:"team"`
	Position     string        `db:"position"`
	JerseyNumber string        `db:"jersey_number"`
	LatestStats  string        `db:"latest_stats"`
	LastUpdated  sql.NullInt64 `db:"last_updated"`
	CreatedAt    int64         `db:"created_at"`
	UpdatedAt    int64         `db:"updated_at"`
}

type playerSearchRow struct {
	playerTableModel
	LatestSeason sql.NullString `db:"latest_season"`
}

// playerProfileInsertModel carries the columns written by a profile upsert.
type playerProfileInsertModel struct {
	ID           int64  `db:"id"`
	FullName     string `db:"full_name"`
	SearchName   string `db:"search_name"`
	Team         string `db:"team"`
	Position     string `db:"position"`
	JerseyNumber string `db:"jersey_number"`
	CreatedAt    int64  `db:"created_at"`
	UpdatedAt    int64  `db:"updated_at"`
}

var playerSelectColumns = []string{
	"id",
	"full_name",
	"search_name",
	"team",
	"position",
	"jersey_number",
	"latest_stats",
	"last_updated",
	"created_at",
	"updated_at",
}

func (m playerTableModel) toDomain() (player.Player, error) {
	var stats player.Stats
	if raw := strings.TrimSpace(m.LatestStats); raw != "" {
		if err := sonic.UnmarshalString(raw, &stats); err != nil {
			return player.Player{}, err
		}
	}

	return player.Player{
		Profile: player.Profile{
			ID:           m.ID,
			FullName:     m.FullName,
			Team:         m.Team,
			Position:     m.Position,
			JerseyNumber: m.JerseyNumber,
		},
		LatestStats: stats,
		LastUpdated: fromNullMillis(m.LastUpdated),
		CreatedAt:   fromMillis(m.CreatedAt),
		UpdatedAt:   fromMillis(m.UpdatedAt),
	}, nil
}
