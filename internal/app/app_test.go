package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/nba-stats/internal/config"
	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		AppEnv:               config.EnvDev,
		ServiceName:          "nba-stats-api",
		HTTPAddr:             "127.0.0.1:0",
		ReadTimeout:          time.Second,
		WriteTimeout:         time.Second,
		CORSAllowedOrigins:   []string{"*"},
		DBPath:               filepath.Join(t.TempDir(), "stats.db"),
		DBBusyTimeout:        time.Second,
		DBMaxOpenConns:       2,
		DBAutoMigrate:        true,
		CacheEnabled:         true,
		CacheTTL:             time.Minute,
		StatsFreshFor:        time.Hour,
		StatsRefreshAfter:    6 * time.Hour,
		StatsFetchTimeout:    time.Second,
		RefreshQueueDelay:    time.Millisecond,
		RefreshQueueCapacity: 10,
		MetricsEnabled:       true,
	}
}

func TestNew_ServesStoredPlayersOffline(t *testing.T) {
	cfg := testConfig(t)
	application, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("build app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start app: %v", err)
	}
	defer func() {
		if err := application.Shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown app: %v", err)
		}
	}()

	repo := sqlite.NewPlayerRepository(application.db)
	if err := repo.Upsert(ctx, player.Profile{ID: 1629029, FullName: "Luka Dončić", Team: "Dallas Mavericks"}); err != nil {
		t.Fatalf("seed player: %v", err)
	}

	cases := []struct {
		target string
		status int
		want   string
	}{
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/v1/players/search?name=doncic", http.StatusOK, `"id":1629029`},
		{"/v1/players/1629029/seasons", http.StatusOK, `"data":[]`},
		{"/v1/players/999/stats", http.StatusNotFound, `"reason":"notFound"`},
		// The fetcher is disabled, so a cold read reports the dependency as unavailable.
		{"/v1/players/1629029/stats", http.StatusServiceUnavailable, `"reason":"dependencyUnavailable"`},
		{"/metrics", http.StatusOK, "nba_stats_http_requests_total"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		application.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d: %s", tc.target, tc.status, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), tc.want) {
			t.Fatalf("%s: expected %s in %s", tc.target, tc.want, rec.Body.String())
		}
	}
}

func TestNew_RejectsEmptyAddr(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = ""
	if _, err := New(cfg, logging.NewNop()); err == nil {
		t.Fatalf("expected error for empty http addr")
	}
}
