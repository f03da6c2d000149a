package nbastats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/playerstats"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
)

// tradedTotalAbbreviation is the team code of the combined row for a season split across teams.
const tradedTotalAbbreviation = "TOT"

func mapPayload(playerID int64, info, career resultSetsEnvelope) (playerstats.Payload, error) {
	set, ok := info.find(resultSetCommonPlayerInfo)
	if !ok || len(set.RowSet) == 0 {
		return playerstats.Payload{}, fmt.Errorf("common player info missing for player_id=%d", playerID)
	}
	payload := playerstats.Payload{
		PlayerID: playerID,
		Info:     mapInfo(set.rows()[0]),
		Headline: player.Stats{},
	}

	if headline, ok := info.find(resultSetHeadlineStats); ok && len(headline.RowSet) > 0 {
		payload.Headline = mapHeadline(headline.rows()[0])
	}

	totals, ok := career.find(resultSetSeasonTotals)
	if !ok {
		return payload, nil
	}
	seasons, err := mapCareer(playerID, totals.rows())
	if err != nil {
		return playerstats.Payload{}, err
	}
	payload.Career = seasons

	return payload, nil
}

func mapInfo(r row) playerstats.Info {
	name := r.String("DISPLAY_FIRST_LAST")
	if name == "" {
		name = strings.TrimSpace(r.String("FIRST_NAME") + " " + r.String("LAST_NAME"))
	}
	team := strings.TrimSpace(r.String("TEAM_CITY") + " " + r.String("TEAM_NAME"))

	return playerstats.Info{
		FullName:         name,
		Team:             team,
		TeamAbbreviation: r.String("TEAM_ABBREVIATION"),
		Position:         r.String("POSITION"),
		JerseyNumber:     r.String("JERSEY"),
	}
}

func mapHeadline(r row) player.Stats {
	out := player.Stats{}
	for header, key := range map[string]string{
		"PTS": season.KeyPoints,
		"AST": season.KeyAssists,
		"REB": season.KeyRebounds,
		"PIE": "pie",
	} {
		if r.Has(header) {
			out[key] = r.Float(header)
		}
	}
	return out
}

// mapCareer returns one season per season id, most recent first, preferring the TOT row for traded seasons.
func mapCareer(playerID int64, rows []row) ([]season.Season, error) {
	bySeason := make(map[string]row, len(rows))
	for _, r := range rows {
		seasonID := r.String("SEASON_ID")
		if seasonID == "" {
			continue
		}
		current, seen := bySeason[seasonID]
		if seen && current.String("TEAM_ABBREVIATION") == tradedTotalAbbreviation {
			continue
		}
		if !seen || r.String("TEAM_ABBREVIATION") == tradedTotalAbbreviation {
			bySeason[seasonID] = r
		}
	}

	out := make([]season.Season, 0, len(bySeason))
	for seasonID, r := range bySeason {
		s, err := season.FromFields(playerID, seasonID, seasonFields(r))
		if err != nil {
			return nil, fmt.Errorf("map season %s for player_id=%d: %w", seasonID, playerID, err)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeasonID > out[j].SeasonID })

	return out, nil
}

func seasonFields(r row) map[string]any {
	return map[string]any{
		season.FieldTeamAbbreviation: r.String("TEAM_ABBREVIATION"),
		season.FieldGamesPlayed:      r.Float("GP"),
		season.FieldMinutes:          r.Float("MIN"),
		season.FieldPoints:           r.Float("PTS"),
		season.FieldAssists:          r.Float("AST"),
		season.FieldRebounds:         r.Float("REB"),
		season.FieldSteals:           r.Float("STL"),
		season.FieldBlocks:           r.Float("BLK"),
		season.FieldFieldGoalPct:     r.Float("FG_PCT"),
		season.FieldThreePointPct:    r.Float("FG3_PCT"),
		season.FieldFreeThrowPct:     r.Float("FT_PCT"),
	}
}
