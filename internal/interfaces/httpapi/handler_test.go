package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/playerstats"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	playermock "github.com/riskibarqy/nba-stats/internal/mocks/domain/player"
	playerstatsmock "github.com/riskibarqy/nba-stats/internal/mocks/domain/playerstats"
	seasonmock "github.com/riskibarqy/nba-stats/internal/mocks/domain/season"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
	"github.com/riskibarqy/nba-stats/internal/usecase"
)

const testAdminToken = "let-me-in"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	players *playermock.Repository
	seasons *seasonmock.Repository
	fetcher *playerstatsmock.Fetcher
	stats   *usecase.StatsService
	router  http.Handler
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()

	f := apiFixture{
		players: playermock.NewRepository(t),
		seasons: seasonmock.NewRepository(t),
		fetcher: playerstatsmock.NewFetcher(t),
	}
	logger := logging.NewNop()
	recorder := metrics.NewRecorder()

	playerService := usecase.NewPlayerService(f.players, f.seasons)
	f.stats = usecase.NewStatsService(f.players, f.seasons, f.fetcher, func() time.Time { return testNow }, logger, recorder, usecase.StatsServiceConfig{
		FreshFor:      time.Hour,
		RefreshAfter:  6 * time.Hour,
		FetchTimeout:  time.Second,
		QueueCapacity: 10,
	})
	handler := NewHandler(
		playerService,
		f.stats,
		usecase.NewAnalyticsService(playerService),
		usecase.NewRefreshWorker(f.stats, logger, recorder, time.Millisecond),
		usecase.NewRefreshScheduler(f.players, f.stats, logger, recorder, usecase.RefreshSchedulerConfig{StaleAfter: 24 * time.Hour, BatchSize: 5}),
		logger,
	)
	f.router = NewRouter(handler, recorder, logger, RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		AdminToken:         testAdminToken,
		MetricsEnabled:     true,
	})
	return f
}

func (f apiFixture) do(method, target, body string, admin bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if admin {
		req.Header.Set(adminTokenHeader, testAdminToken)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	APIVersion string         `json:"apiVersion"`
	Data       map[string]any `json:"data"`
	Error      *struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var out envelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response body %q: %v", rec.Body.String(), err)
	}
	if out.APIVersion != googleAPIVersion {
		t.Fatalf("expected apiVersion %s, got %q", googleAPIVersion, out.APIVersion)
	}
	return out
}

func expectErrorReason(t *testing.T, rec *httptest.ResponseRecorder, status int, reason string) {
	t.Helper()

	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	if body.Error == nil || len(body.Error.Errors) == 0 || body.Error.Errors[0].Reason != reason {
		t.Fatalf("expected reason %s, got %s", reason, rec.Body.String())
	}
}

func jokic() player.Player {
	return player.Player{
		Profile:     player.Profile{ID: 203999, FullName: "Nikola Jokić", Team: "Denver Nuggets", Position: "Center", JerseyNumber: "15"},
		LatestStats: player.Stats{"pts": 26.4},
		LastUpdated: testNow.Add(-time.Hour),
	}
}

func jokicSeasons() []season.Season {
	return []season.Season{
		{PlayerID: 203999, SeasonID: "2023-24", TeamAbbreviation: "DEN", GamesPlayed: 79, Minutes: 2737, Points: 2085, Assists: 708, Rebounds: 976, Steals: 108, Blocks: 68, FieldGoalPct: 0.583},
		{PlayerID: 203999, SeasonID: "2022-23", TeamAbbreviation: "DEN", GamesPlayed: 69, Minutes: 2323, Points: 1690, Assists: 678, Rebounds: 817, Steals: 87, Blocks: 47, FieldGoalPct: 0.632},
	}
}

func TestGetPlayer(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()

	rec := f.do(http.MethodGet, "/v1/players/203999", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	if body.Data["fullName"] != "Nikola Jokić" || body.Data["lastUpdated"] != "2026-03-01T11:00:00Z" {
		t.Fatalf("unexpected player body: %v", body.Data)
	}
}

func TestGetPlayer_Errors(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(42)).Return(player.Player{}, false, nil).Once()
	f.players.On("GetByID", mock.Anything, int64(43)).Return(player.Player{}, false, errors.New("database is locked")).Once()

	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/abc", "", false), http.StatusBadRequest, "invalidInput")
	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/-3", "", false), http.StatusBadRequest, "invalidInput")
	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/42", "", false), http.StatusNotFound, "notFound")
	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/43", "", false), http.StatusServiceUnavailable, "storageUnavailable")
}

func TestSearchPlayers_AttachesSeasons(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("SearchByName", mock.Anything, "jokic", 10).Return([]player.Player{jokic()}, nil).Once()
	f.seasons.On("ListByPlayer", mock.Anything, int64(203999)).Return(jokicSeasons(), nil).Once()

	rec := f.do(http.MethodGet, "/v1/players/search?name=Joki%C4%87", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data []playerWithSeasonsDTO `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Data) != 1 || len(body.Data[0].Seasons) != 2 || body.Data[0].Seasons[0].SeasonID != "2023-24" {
		t.Fatalf("unexpected search result: %+v", body.Data)
	}
}

func TestSearchPlayers_RejectsBadQuery(t *testing.T) {
	f := newAPIFixture(t)

	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/search?name=%20", "", false), http.StatusBadRequest, "invalidInput")
	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/search?name=luka&limit=ten", "", false), http.StatusBadRequest, "invalidInput")
}

func TestGetPlayerStats_ColdRead(t *testing.T) {
	f := newAPIFixture(t)
	payload := playerstats.Payload{
		PlayerID: 203999,
		Info:     playerstats.Info{FullName: "Nikola Jokić", Team: "Denver Nuggets"},
		Headline: player.Stats{"pts": 26.4, "ast": 9.0, "reb": 12.4},
		Career:   jokicSeasons(),
	}
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()
	f.fetcher.On("FetchPlayerSnapshot", mock.Anything, int64(203999)).Return(payload, nil).Once()
	f.seasons.On("UpsertMany", mock.Anything, int64(203999), mock.Anything).Return(nil).Once()
	f.players.On("UpdateStats", mock.Anything, int64(203999), mock.Anything, mock.Anything).Return(nil).Once()
	f.players.On("Upsert", mock.Anything, payload.Profile()).Return(nil).Once()

	rec := f.do(http.MethodGet, "/v1/players/203999/stats", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	headline, _ := body.Data["headline"].(map[string]any)
	if headline["pts"] != 26.4 || body.Data["fetchedAt"] != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected stats body: %v", body.Data)
	}

	// A second read inside the fresh window is served without touching the mocks again.
	if rec := f.do(http.MethodGet, "/v1/players/203999/stats", "", false); rec.Code != http.StatusOK {
		t.Fatalf("expected cached read, got %d", rec.Code)
	}
}

func TestGetPlayerStats_UpstreamFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()
	f.fetcher.On("FetchPlayerSnapshot", mock.Anything, int64(203999)).Return(playerstats.Payload{}, errors.New("status 500")).Once()

	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/203999/stats", "", false), http.StatusBadGateway, "upstreamFetchFailed")
}

func TestUpsertPlayerStats(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("UpdateStats", mock.Anything, int64(203999), player.Stats{"pts": 30.5}, mock.Anything).Return(nil).Once()
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()

	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/stats", `{"stats":{"pts":30.5}}`, false), http.StatusUnauthorized, "unauthorized")
	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/stats", `{"stats":{}}`, true), http.StatusBadRequest, "invalidInput")
	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/stats", `{"stats":{"pts":"a lot"}}`, true), http.StatusBadRequest, "invalidInput")
	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/stats", `{"stats":{"pts":1},"extra":true}`, true), http.StatusBadRequest, "invalidInput")

	rec := f.do(http.MethodPut, "/v1/players/203999/stats", `{"stats":{"pts":30.5}}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpsertPlayerStats_OutdatedSnapshot(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("UpdateStats", mock.Anything, int64(203999), mock.Anything, mock.Anything).Return(player.ErrOutdatedSnapshot).Once()

	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/stats", `{"stats":{"pts":1}}`, true), http.StatusConflict, "outdatedSnapshot")
}

const seasonBody = `{"team_abbreviation":"den","games_played":79,"minutes":2737,"points":2085,"assists":708,"rebounds":976,"steals":108,"blocks":68,"fg_pct":%s,"fg3_pct":0.359,"ft_pct":0.817}`

func TestUpsertSeason(t *testing.T) {
	f := newAPIFixture(t)
	f.seasons.On("Upsert", mock.Anything, mock.MatchedBy(func(s season.Season) bool {
		return s.PlayerID == 203999 && s.SeasonID == "2023-24" && s.TeamAbbreviation == "DEN" && s.Points == 2085
	})).Return(nil).Once()

	rec := f.do(http.MethodPut, "/v1/players/203999/seasons/2023-24", strings.Replace(seasonBody, "%s", "0.583", 1), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	if body.Data["teamAbbreviation"] != "DEN" || body.Data["fgPct"] != 0.583 {
		t.Fatalf("unexpected season body: %v", body.Data)
	}
}

func TestUpsertSeason_Rejections(t *testing.T) {
	f := newAPIFixture(t)

	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/seasons/2023-24", strings.Replace(seasonBody, "%s", "1.4", 1), true), http.StatusUnprocessableEntity, "invalidSeason")
	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/seasons/2023", strings.Replace(seasonBody, "%s", "0.5", 1), true), http.StatusUnprocessableEntity, "invalidSeason")
	expectErrorReason(t, f.do(http.MethodPut, "/v1/players/203999/seasons/2023-24", `{"games_played":79}`, true), http.StatusBadRequest, "invalidInput")
}

func TestGetSeason_NotFound(t *testing.T) {
	f := newAPIFixture(t)
	f.seasons.On("Get", mock.Anything, int64(203999), "1999-00").Return(season.Season{}, false, nil).Once()

	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/203999/seasons/1999-00", "", false), http.StatusNotFound, "notFound")
	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/203999/seasons/latest", "", false), http.StatusBadRequest, "invalidInput")
}

func TestQueueRefresh(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Twice()

	rec := f.do(http.MethodPost, "/v1/players/203999/refresh", "", true)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeEnvelope(t, rec); body.Data["queued"] != true || body.Data["pending"] != float64(1) {
		t.Fatalf("unexpected refresh body: %v", body.Data)
	}

	rec = f.do(http.MethodPost, "/v1/players/203999/refresh", "", true)
	if body := decodeEnvelope(t, rec); body.Data["queued"] != false || body.Data["pending"] != float64(1) {
		t.Fatalf("expected duplicate request to leave queue unchanged, got %v", body.Data)
	}
}

func TestRefreshStatusAndStaleSweep(t *testing.T) {
	f := newAPIFixture(t)
	stale := []player.Player{{Profile: player.Profile{ID: 1, FullName: "A"}}, {Profile: player.Profile{ID: 2, FullName: "B"}}}
	f.players.On("ListStale", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return cutoff.Equal(testNow.Add(-24 * time.Hour))
	}), 5).Return(stale, nil).Once()

	rec := f.do(http.MethodPost, "/v1/refresh/stale", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeEnvelope(t, rec); body.Data["queued"] != float64(2) || body.Data["cutoff"] != "2026-02-28T12:00:00Z" {
		t.Fatalf("unexpected sweep body: %v", body.Data)
	}

	rec = f.do(http.MethodGet, "/v1/refresh/status", "", false)
	if body := decodeEnvelope(t, rec); body.Data["queued"] != float64(2) || body.Data["running"] != false {
		t.Fatalf("unexpected status body: %v", body.Data)
	}
}

func TestCompareSeasons(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()
	f.seasons.On("ListByPlayer", mock.Anything, int64(203999)).Return(jokicSeasons(), nil).Once()

	rec := f.do(http.MethodGet, "/v1/players/203999/analytics/compare/2022-23/2023-24", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	stats, _ := body.Data["stats"].(map[string]any)
	pts, _ := stats["pts"].(map[string]any)
	if pts["value1"] != float64(1690) || pts["value2"] != float64(2085) || pts["difference"] != float64(395) {
		t.Fatalf("unexpected points comparison: %v", pts)
	}
}

func TestAnalytics_NoSeasons(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()
	f.seasons.On("ListByPlayer", mock.Anything, int64(203999)).Return(nil, nil).Once()

	expectErrorReason(t, f.do(http.MethodGet, "/v1/players/203999/analytics/prediction", "", false), http.StatusNotFound, "notFound")
}

func TestMetricsRecordsRoutePattern(t *testing.T) {
	f := newAPIFixture(t)
	f.players.On("GetByID", mock.Anything, int64(203999)).Return(jokic(), true, nil).Once()

	f.do(http.MethodGet, "/v1/players/203999", "", false)
	rec := f.do(http.MethodGet, "/metrics", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	want := `nba_stats_http_requests_total{method="GET",route="GET /v1/players/{playerID}",status="200"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("expected %s in metrics output", want)
	}
}

func TestRecoverPanic(t *testing.T) {
	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/players/1", nil).WithContext(context.Background()))
	expectErrorReason(t, rec, http.StatusInternalServerError, "internalError")
}
