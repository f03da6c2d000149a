package usecase

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
)

const (
	importColumnPlayerID     = "player_id"
	importColumnFullName     = "full_name"
	importColumnTeam         = "team"
	importColumnPosition     = "position"
	importColumnJerseyNumber = "jersey_number"
	importColumnSeasonID     = "season_id"
)

var importNumericColumns = []string{
	season.FieldGamesPlayed,
	season.FieldMinutes,
	season.FieldPoints,
	season.FieldAssists,
	season.FieldRebounds,
	season.FieldSteals,
	season.FieldBlocks,
	season.FieldFieldGoalPct,
	season.FieldThreePointPct,
	season.FieldFreeThrowPct,
}

// ParseImportCSV reads rows with a header line. player_id and full_name are
// required; season columns may be blank for profile-only rows.
func ParseImportCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv is empty", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", ErrInvalidInput, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{importColumnPlayerID, importColumnFullName} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: csv header is missing %s", ErrInvalidInput, required)
		}
	}

	var rows []ImportRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv line %d: %v", ErrInvalidInput, line, err)
		}

		row, err := parseImportRecord(columns, record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidInput, line, err)
		}
		row.Line = line
		rows = append(rows, row)
	}

	return rows, nil
}

func parseImportRecord(columns map[string]int, record []string) (ImportRow, error) {
	get := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	id, err := strconv.ParseInt(get(importColumnPlayerID), 10, 64)
	if err != nil || id <= 0 {
		return ImportRow{}, fmt.Errorf("player_id %q must be a positive integer", get(importColumnPlayerID))
	}

	row := ImportRow{
		Profile: player.Profile{
			ID:           id,
			FullName:     get(importColumnFullName),
			Team:         get(importColumnTeam),
			Position:     get(importColumnPosition),
			JerseyNumber: get(importColumnJerseyNumber),
		},
		SeasonID: get(importColumnSeasonID),
	}
	if row.SeasonID == "" {
		return row, nil
	}

	row.Fields = map[string]any{season.FieldTeamAbbreviation: get(season.FieldTeamAbbreviation)}
	for _, name := range importNumericColumns {
		raw := get(name)
		if raw == "" {
			row.Fields[name] = 0.0
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ImportRow{}, fmt.Errorf("%s %q is not a number", name, raw)
		}
		row.Fields[name] = v
	}

	return row, nil
}
