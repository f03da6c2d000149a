package playerstats

import (
	"context"
	"time"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
)

// Info is the descriptive part of a fetched snapshot.
type Info struct {
	FullName         string
	Team             string
	TeamAbbreviation string
	Position         string
	JerseyNumber     string
}

// Payload is one snapshot of a player's stats from the external source.
// Payloads are never mutated after construction.
type Payload struct {
	PlayerID int64
	Info     Info
	// Headline holds the current time frame numbers (pts, ast, reb, pie).
	Headline  player.Stats
	Career    []season.Season
	FetchedAt time.Time
}

// Profile converts the fetched info into a store profile.
func (p Payload) Profile() player.Profile {
	return player.Profile{
		ID:           p.PlayerID,
		FullName:     p.Info.FullName,
		Team:         p.Info.Team,
		Position:     p.Info.Position,
		JerseyNumber: p.Info.JerseyNumber,
	}
}

// LatestStats is the snapshot persisted on the player record: the headline
// numbers plus the most recent career season's totals.
func (p Payload) LatestStats() player.Stats {
	out := p.Headline.Clone()
	if out == nil {
		out = player.Stats{}
	}
	if len(p.Career) == 0 {
		return out
	}

	latest := p.Career[0]
	for _, s := range p.Career[1:] {
		if s.SeasonID > latest.SeasonID {
			latest = s
		}
	}
	for _, key := range []string{
		season.KeyGamesPlayed,
		season.KeyMinutes,
		season.KeyFieldGoalPct,
		season.KeyThreePointPct,
		season.KeyFreeThrowPct,
	} {
		v, _ := latest.Value(key)
		out[key] = v
	}
	for _, key := range []string{season.KeyPoints, season.KeyAssists, season.KeyRebounds, season.KeySteals, season.KeyBlocks} {
		v, _ := latest.Value(key)
		out["season_"+key] = v
	}
	return out
}

// Fetcher retrieves a fresh snapshot for one player from the external source.
type Fetcher interface {
	FetchPlayerSnapshot(ctx context.Context, playerID int64) (Payload, error)
}
