// Package analytics derives career metrics from stored season totals. Every
// function is pure and leaves its input untouched.
package analytics

import (
	"math"
	"slices"
	"strings"

	"github.com/riskibarqy/nba-stats/internal/domain/season"
)

// TrackedKeys are the stats reported by trends, highs, comparisons and predictions.
var TrackedKeys = []string{
	season.KeyPoints,
	season.KeyAssists,
	season.KeyRebounds,
	season.KeySteals,
	season.KeyBlocks,
	season.KeyFieldGoalPct,
	season.KeyThreePointPct,
	season.KeyFreeThrowPct,
}

// CountingKeys are the tracked stats that are totals rather than percentages.
var CountingKeys = []string{
	season.KeyPoints,
	season.KeyAssists,
	season.KeyRebounds,
	season.KeySteals,
	season.KeyBlocks,
}

var predictionWeights = []float64{0.5, 0.3, 0.2}

type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionFlat       Direction = "flat"
)

type Trend struct {
	Direction Direction
	// Magnitude is the absolute average season-over-season change.
	Magnitude float64
	// Percentage is the average change relative to the first season, nil when that value is 0.
	Percentage *float64
}

type Comparison struct {
	Value1     float64
	Value2     float64
	Difference float64
	// PercentageChange is nil when Value1 is 0.
	PercentageChange *float64
}

// Trends reports the average change per season for every tracked stat.
// It needs at least two seasons.
func Trends(seasons []season.Season) map[string]Trend {
	if len(seasons) < 2 {
		return map[string]Trend{}
	}
	ordered := ascending(seasons)

	out := make(map[string]Trend, len(TrackedKeys))
	for _, key := range TrackedKeys {
		values := valuesOf(ordered, key)
		var total float64
		for i := 1; i < len(values); i++ {
			total += values[i] - values[i-1]
		}
		avg := total / float64(len(values)-1)

		trend := Trend{Direction: DirectionFlat, Magnitude: math.Abs(avg)}
		switch {
		case avg > 0:
			trend.Direction = DirectionIncreasing
		case avg < 0:
			trend.Direction = DirectionDecreasing
		}
		if values[0] != 0 {
			pct := avg / values[0] * 100
			trend.Percentage = &pct
		}
		out[key] = trend
	}
	return out
}

func CareerHighs(seasons []season.Season) map[string]float64 {
	out := make(map[string]float64, len(TrackedKeys))
	if len(seasons) == 0 {
		return out
	}
	for _, key := range TrackedKeys {
		out[key] = slices.Max(valuesOf(seasons, key))
	}
	return out
}

// Averages is the mean per season of every tracked stat plus games and minutes.
func Averages(seasons []season.Season) map[string]float64 {
	keys := append([]string{season.KeyGamesPlayed, season.KeyMinutes}, TrackedKeys...)
	out := make(map[string]float64, len(keys))
	if len(seasons) == 0 {
		return out
	}
	for _, key := range keys {
		var sum float64
		for _, v := range valuesOf(seasons, key) {
			sum += v
		}
		out[key] = sum / float64(len(seasons))
	}
	return out
}

// PerGame divides the counting stats and minutes by games played.
func PerGame(s season.Season) map[string]float64 {
	out := make(map[string]float64, len(CountingKeys)+1)
	if s.GamesPlayed <= 0 {
		return out
	}
	games := float64(s.GamesPlayed)
	for _, key := range append([]string{season.KeyMinutes}, CountingKeys...) {
		v, _ := s.Value(key)
		out[key] = v / games
	}
	return out
}

func PerMinute(s season.Season) map[string]float64 {
	out := make(map[string]float64, 3)
	if s.Minutes <= 0 {
		return out
	}
	for _, key := range []string{season.KeyPoints, season.KeyRebounds, season.KeyAssists} {
		v, _ := s.Value(key)
		out[key] = v / s.Minutes
	}
	return out
}

// Efficiency is (points + rebounds + assists + steals + blocks) per game.
// Stored lines carry no misses or turnovers, so nothing is subtracted.
func Efficiency(s season.Season) float64 {
	if s.GamesPlayed <= 0 {
		return 0
	}
	total := s.Points + s.Rebounds + s.Assists + s.Steals + s.Blocks
	return float64(total) / float64(s.GamesPlayed)
}

// Compare reports how every tracked stat moved from one season to another.
func Compare(from, to season.Season) map[string]Comparison {
	out := make(map[string]Comparison, len(TrackedKeys))
	for _, key := range TrackedKeys {
		v1, _ := from.Value(key)
		v2, _ := to.Value(key)
		c := Comparison{Value1: v1, Value2: v2, Difference: v2 - v1}
		if v1 != 0 {
			pct := (v2 - v1) / v1 * 100
			c.PercentageChange = &pct
		}
		out[key] = c
	}
	return out
}

// Predict projects next season's tracked stats from a weighted average of the
// three most recent seasons (0.5, 0.3, 0.2, renormalized when fewer exist),
// scaled by the mean relative change between those seasons.
func Predict(seasons []season.Season) map[string]float64 {
	out := make(map[string]float64, len(TrackedKeys))
	if len(seasons) == 0 {
		return out
	}
	recent := descending(seasons)
	if len(recent) > len(predictionWeights) {
		recent = recent[:len(predictionWeights)]
	}
	weights := predictionWeights[:len(recent)]
	var weightSum float64
	for _, w := range weights {
		weightSum += w
	}

	for _, key := range TrackedKeys {
		values := valuesOf(recent, key)
		var weighted float64
		for i, v := range values {
			weighted += v * weights[i] / weightSum
		}

		predicted := weighted * (1 + relativeChange(values))
		if predicted < 0 {
			predicted = 0
		}
		if isPercentage(key) && predicted > 1 {
			predicted = 1
		}
		out[key] = predicted
	}
	return out
}

// relativeChange averages (newer-older)/older over values ordered newest first,
// skipping pairs whose older value is 0.
func relativeChange(values []float64) float64 {
	var sum float64
	var n int
	for i := 1; i < len(values); i++ {
		if values[i] == 0 {
			continue
		}
		sum += (values[i-1] - values[i]) / values[i]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func isPercentage(key string) bool {
	return strings.HasSuffix(key, "_pct")
}

func valuesOf(seasons []season.Season, key string) []float64 {
	out := make([]float64, len(seasons))
	for i, s := range seasons {
		out[i], _ = s.Value(key)
	}
	return out
}

func ascending(seasons []season.Season) []season.Season {
	out := slices.Clone(seasons)
	slices.SortStableFunc(out, func(a, b season.Season) int {
		return strings.Compare(a.SeasonID, b.SeasonID)
	})
	return out
}

func descending(seasons []season.Season) []season.Season {
	out := ascending(seasons)
	slices.Reverse(out)
	return out
}
