package nbastats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/resilience"
)

const commonPlayerInfoBody = `{
  "resource": "commonplayerinfo",
  "resultSets": [
    {
      "name": "CommonPlayerInfo",
      "headers": ["PERSON_ID","FIRST_NAME","LAST_NAME","DISPLAY_FIRST_LAST","TEAM_NAME","TEAM_ABBREVIATION","TEAM_CITY","JERSEY","POSITION"],
      "rowSet": [[203999,"Nikola","Jokić","Nikola Jokić","Nuggets","DEN","Denver","15","Center"]]
    },
    {
      "name": "PlayerHeadlineStats",
      "headers": ["PLAYER_ID","PLAYER_NAME","TimeFrame","PTS","AST","REB","PIE"],
      "rowSet": [[203999,"Nikola Jokić","2023-24",26.4,9.0,12.4,0.204]]
    }
  ]
}`

const careerStatsBody = `{
  "resource": "playercareerstats",
  "resultSets": [
    {
      "name": "SeasonTotalsRegularSeason",
      "headers": ["PLAYER_ID","SEASON_ID","TEAM_ABBREVIATION","GP","MIN","PTS","AST","REB","STL","BLK","FG_PCT","FG3_PCT","FT_PCT"],
      "rowSet": [
        [203999,"2022-23","DEN",69,2323.0,1690,678,817,87,47,0.632,0.383,0.822],
        [203999,"2023-24","DEN",79,2737.0,2085,708,976,108,68,0.583,0.359,0.817],
        [203999,"2015-16","DEN",80,1733.0,801,191,563,61,52,0.512,null,0.811]
      ]
    },
    {
      "name": "CareerTotalsRegularSeason",
      "headers": ["PLAYER_ID","GP"],
      "rowSet": [[203999,228]]
    }
  ]
}`

const tradedCareerBody = `{
  "resultSets": [
    {
      "name": "SeasonTotalsRegularSeason",
      "headers": ["PLAYER_ID","SEASON_ID","TEAM_ABBREVIATION","GP","MIN","PTS","AST","REB","STL","BLK","FG_PCT","FG3_PCT","FT_PCT"],
      "rowSet": [
        [1629029,"2018-19","NYK",12,350.0,180,30,50,10,2,0.45,0.35,0.7],
        [1629029,"2018-19","TOT",60,1800.0,900,150,250,40,10,0.46,0.34,0.72],
        [1629029,"2018-19","DAL",48,1450.0,720,120,200,30,8,0.47,0.34,0.73]
      ]
    }
  ]
}`

func newStatsServer(t *testing.T, career string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Referer") == "" || r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/commonplayerinfo":
			_, _ = w.Write([]byte(commonPlayerInfoBody))
		case "/playercareerstats":
			if r.URL.Query().Get("PerMode") != "Totals" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(career))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestClient_FetchPlayerSnapshot(t *testing.T) {
	t.Parallel()

	server, _ := newStatsServer(t, careerStatsBody)
	fetchedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Logger:  logging.NewNop(),
		Now:     func() time.Time { return fetchedAt },
	})

	payload, err := client.FetchPlayerSnapshot(context.Background(), 203999)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}

	if payload.PlayerID != 203999 || !payload.FetchedAt.Equal(fetchedAt) {
		t.Fatalf("unexpected payload identity: %+v", payload)
	}
	if payload.Info.FullName != "Nikola Jokić" || payload.Info.Team != "Denver Nuggets" || payload.Info.JerseyNumber != "15" {
		t.Fatalf("unexpected info: %+v", payload.Info)
	}
	if payload.Headline["pts"] != 26.4 || payload.Headline["pie"] != 0.204 {
		t.Fatalf("unexpected headline: %+v", payload.Headline)
	}

	if len(payload.Career) != 3 {
		t.Fatalf("expected 3 seasons, got %d", len(payload.Career))
	}
	if payload.Career[0].SeasonID != "2023-24" || payload.Career[2].SeasonID != "2015-16" {
		t.Fatalf("expected seasons most recent first, got %s..%s", payload.Career[0].SeasonID, payload.Career[2].SeasonID)
	}
	if payload.Career[0].Points != 2085 || payload.Career[0].FieldGoalPct != 0.583 {
		t.Fatalf("unexpected latest season: %+v", payload.Career[0])
	}
	if payload.Career[2].ThreePointPct != 0 {
		t.Fatalf("expected null three point pct to map to zero, got %v", payload.Career[2].ThreePointPct)
	}
}

func TestClient_TradedSeasonUsesTotalRow(t *testing.T) {
	t.Parallel()

	server, _ := newStatsServer(t, tradedCareerBody)
	client := NewClient(ClientConfig{BaseURL: server.URL, Logger: logging.NewNop()})

	payload, err := client.FetchPlayerSnapshot(context.Background(), 1629029)
	if err != nil {
		t.Fatalf("fetch snapshot: %v", err)
	}
	if len(payload.Career) != 1 {
		t.Fatalf("expected traded season to collapse to one row, got %d", len(payload.Career))
	}
	if got := payload.Career[0]; got.TeamAbbreviation != "TOT" || got.GamesPlayed != 60 {
		t.Fatalf("expected TOT row, got %+v", got)
	}
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(commonPlayerInfoBody))
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:      server.URL,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Logger:       logging.NewNop(),
	})

	var out resultSetsEnvelope
	if err := client.doJSON(context.Background(), "/commonplayerinfo", nil, &out); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:      server.URL,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Logger:       logging.NewNop(),
	})

	_, err := client.FetchPlayerSnapshot(context.Background(), 1)
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrTransient) {
		t.Fatalf("expected non-transient error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClient_CircuitOpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.FetchPlayerSnapshot(context.Background(), 203999); !errors.Is(err, ErrTransient) {
			t.Fatalf("attempt %d: expected transient error, got %v", i, err)
		}
	}

	_, err := client.FetchPlayerSnapshot(context.Background(), 203999)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected open circuit to skip the request, got %d calls", calls.Load())
	}
	if client.BreakerState() != "open" {
		t.Fatalf("expected open breaker, got %s", client.BreakerState())
	}
}

func TestClient_RejectsInvalidPlayerID(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:0", Logger: logging.NewNop()})
	if _, err := client.FetchPlayerSnapshot(context.Background(), 0); err == nil {
		t.Fatalf("expected invalid id error")
	}
}
