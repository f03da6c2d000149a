package nbastats

import (
	"strconv"
	"strings"
)

const (
	resultSetCommonPlayerInfo = "CommonPlayerInfo"
	resultSetHeadlineStats    = "PlayerHeadlineStats"
	resultSetSeasonTotals     = "SeasonTotalsRegularSeason"
)

type resultSetsEnvelope struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	RowSet  [][]any  `json:"rowSet"`
}

func (e resultSetsEnvelope) find(name string) (resultSet, bool) {
	for _, set := range e.ResultSets {
		if strings.EqualFold(set.Name, name) {
			return set, true
		}
	}
	return resultSet{}, false
}

// rows zips every row with the headers. Short rows leave the trailing headers unset.
func (s resultSet) rows() []row {
	out := make([]row, 0, len(s.RowSet))
	for _, values := range s.RowSet {
		item := make(row, len(s.Headers))
		for i, header := range s.Headers {
			if i >= len(values) {
				break
			}
			item[strings.ToUpper(header)] = values[i]
		}
		out = append(out, item)
	}
	return out
}

type row map[string]any

func (r row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Float returns 0 for null and non-numeric cells; the provider sends null for untracked stats.
func (r row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func (r row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}
