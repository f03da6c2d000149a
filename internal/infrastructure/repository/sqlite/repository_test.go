package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := Open(Options{Path: filepath.Join(t.TempDir(), "stats.db"), BusyTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPlayer(t *testing.T, repo *PlayerRepository, id int64, name string) {
	t.Helper()
	if err := repo.Upsert(context.Background(), player.Profile{ID: id, FullName: name, Team: "Denver Nuggets", Position: "Center"}); err != nil {
		t.Fatalf("seed player %d: %v", id, err)
	}
}

func testSeason(playerID int64, seasonID string, points int) season.Season {
	return season.Season{
		PlayerID:         playerID,
		SeasonID:         seasonID,
		TeamAbbreviation: "DEN",
		GamesPlayed:      70,
		Minutes:          2400,
		Points:           points,
		Assists:          600,
		Rebounds:         800,
		Steals:           90,
		Blocks:           50,
		FieldGoalPct:     0.58,
		ThreePointPct:    0.35,
		FreeThrowPct:     0.82,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := Migrate(db.DB); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestPlayerRepository_GetByIDMissing(t *testing.T) {
	repo := NewPlayerRepository(newTestDB(t))

	_, ok, err := repo.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("get missing player: %v", err)
	}
	if ok {
		t.Fatalf("expected missing player")
	}
}

func TestPlayerRepository_UpdateStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(newTestDB(t))
	seedPlayer(t, repo, 7, "Luka Dončić")

	before, _, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := player.Stats{"pts": 33.9, "ast": 9.8, "reb": 9.2}
	if err := repo.UpdateStats(ctx, 7, snapshot, at); err != nil {
		t.Fatalf("update stats: %v", err)
	}

	got, ok, err := repo.GetByID(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get player after update: ok=%t err=%v", ok, err)
	}
	if len(got.LatestStats) != len(snapshot) {
		t.Fatalf("unexpected stats: %+v", got.LatestStats)
	}
	for k, v := range snapshot {
		if got.LatestStats[k] != v {
			t.Fatalf("stat %s: want %v got %v", k, v, got.LatestStats[k])
		}
	}
	if !got.LastUpdated.Equal(at) || got.LastUpdated.Before(before.LastUpdated) {
		t.Fatalf("unexpected last updated: %s", got.LastUpdated)
	}
	if got.FullName != "Luka Dončić" || got.Team != "Denver Nuggets" {
		t.Fatalf("unexpected profile: %+v", got.Profile)
	}
}

func TestPlayerRepository_UpdateStatsUnknownPlayer(t *testing.T) {
	repo := NewPlayerRepository(newTestDB(t))

	err := repo.UpdateStats(context.Background(), 404, player.Stats{"pts": 1}, time.Now())
	if !errors.Is(err, player.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayerRepository_UpdateStatsRejectsOlderSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(newTestDB(t))
	seedPlayer(t, repo, 9, "Nikola Jokić")

	newer := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	older := newer.Add(-5 * time.Second)

	if err := repo.UpdateStats(ctx, 9, player.Stats{"pts": 30}, newer); err != nil {
		t.Fatalf("update newer: %v", err)
	}
	if err := repo.UpdateStats(ctx, 9, player.Stats{"pts": 10}, older); !errors.Is(err, player.ErrOutdatedSnapshot) {
		t.Fatalf("expected ErrOutdatedSnapshot, got %v", err)
	}

	got, _, err := repo.GetByID(ctx, 9)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if got.LatestStats["pts"] != 30 || !got.LastUpdated.Equal(newer) {
		t.Fatalf("expected newer snapshot to survive, got %+v at %s", got.LatestStats, got.LastUpdated)
	}
}

func TestPlayerRepository_ConcurrentUpdatesKeepLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(newTestDB(t))
	seedPlayer(t, repo, 9, "Nikola Jokić")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.UpdateStats(ctx, 9, player.Stats{"pts": float64(i)}, base.Add(time.Duration(i)*time.Second))
			if err != nil && !errors.Is(err, player.ErrOutdatedSnapshot) {
				t.Errorf("update %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _, err := repo.GetByID(ctx, 9)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if want := base.Add(7 * time.Second); !got.LastUpdated.Equal(want) || got.LatestStats["pts"] != 7 {
		t.Fatalf("expected latest write to win, got %v at %s", got.LatestStats, got.LastUpdated)
	}
}

func TestPlayerRepository_SearchByNameIgnoresDiacritics(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	players := NewPlayerRepository(db)
	seasons := NewSeasonRepository(db)

	seedPlayer(t, players, 203999, "Nikola Jokić")
	seedPlayer(t, players, 1, "Nikola Jokic Sr")
	seedPlayer(t, players, 2, "Nikola Vučević")
	if err := seasons.Upsert(ctx, testSeason(203999, "2023-24", 2085)); err != nil {
		t.Fatalf("seed season: %v", err)
	}

	got, err := players.SearchByName(ctx, "jokic", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	// The player with season data sorts ahead of the one without.
	if got[0].ID != 203999 || got[1].ID != 1 {
		t.Fatalf("unexpected order: %d, %d", got[0].ID, got[1].ID)
	}
}

func TestPlayerRepository_SearchOrdersByLatestSeason(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	players := NewPlayerRepository(db)
	seasons := NewSeasonRepository(db)

	seedPlayer(t, players, 10, "Anthony Davis")
	seedPlayer(t, players, 20, "Anthony Edwards")
	seedPlayer(t, players, 30, "Anthony Bennett")
	for _, s := range []season.Season{
		testSeason(10, "2021-22", 1000),
		testSeason(20, "2023-24", 1800),
		testSeason(20, "2020-21", 1300),
	} {
		if err := seasons.Upsert(ctx, s); err != nil {
			t.Fatalf("seed season: %v", err)
		}
	}

	got, err := players.SearchByName(ctx, "anthony", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 || got[0].ID != 20 || got[1].ID != 10 || got[2].ID != 30 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestPlayerRepository_SearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(newTestDB(t))
	seedPlayer(t, repo, 1, "Shai Gilgeous-Alexander")

	got, err := repo.SearchByName(ctx, "%", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected literal %% to match nothing, got %d", len(got))
	}
}

func TestPlayerRepository_RandomAndListStale(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(newTestDB(t))
	for i, name := range []string{"A One", "B Two", "C Three"} {
		seedPlayer(t, repo, int64(i+1), name)
	}

	random, err := repo.Random(ctx, 2)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(random) != 2 {
		t.Fatalf("expected 2 random players, got %d", len(random))
	}

	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateStats(ctx, 1, player.Stats{}, now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	if err := repo.UpdateStats(ctx, 2, player.Stats{}, now.Add(-time.Hour)); err != nil {
		t.Fatalf("update 2: %v", err)
	}

	stale, err := repo.ListStale(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	// Never refreshed first, then oldest refresh.
	if len(stale) != 2 || stale[0].ID != 3 || stale[1].ID != 1 {
		t.Fatalf("unexpected stale players: %+v", stale)
	}
}

func TestPlayerRepository_UpsertKeepsStats(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(newTestDB(t))
	seedPlayer(t, repo, 5, "Old Name")

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.UpdateStats(ctx, 5, player.Stats{"pts": 12}, at); err != nil {
		t.Fatalf("update stats: %v", err)
	}
	if err := repo.Upsert(ctx, player.Profile{ID: 5, FullName: "New Name", Team: "BOS"}); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	got, _, err := repo.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FullName != "New Name" || got.Team != "BOS" || got.LatestStats["pts"] != 12 {
		t.Fatalf("unexpected player after profile upsert: %+v", got)
	}
}

func TestSeasonRepository_UpsertReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedPlayer(t, NewPlayerRepository(db), 203999, "Nikola Jokić")
	repo := NewSeasonRepository(db)

	if err := repo.Upsert(ctx, testSeason(203999, "2023-24", 2085)); err != nil {
		t.Fatalf("insert season: %v", err)
	}
	replacement := testSeason(203999, "2023-24", 2100)
	replacement.TeamAbbreviation = "TOT"
	if err := repo.Upsert(ctx, replacement); err != nil {
		t.Fatalf("replace season: %v", err)
	}

	got, ok, err := repo.Get(ctx, 203999, "2023-24")
	if err != nil || !ok {
		t.Fatalf("get season: ok=%t err=%v", ok, err)
	}
	if got != replacement {
		t.Fatalf("expected replacement season, got %+v", got)
	}

	if _, ok, err := repo.Get(ctx, 203999, "1999-00"); err != nil || ok {
		t.Fatalf("expected missing season, ok=%t err=%v", ok, err)
	}
}

func TestSeasonRepository_ListByPlayerDescending(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedPlayer(t, NewPlayerRepository(db), 1, "Test Player")
	repo := NewSeasonRepository(db)

	err := repo.UpsertMany(ctx, 1, []season.Season{
		testSeason(1, "2019-20", 100),
		testSeason(1, "2023-24", 400),
		testSeason(1, "2021-22", 200),
	})
	if err != nil {
		t.Fatalf("upsert many: %v", err)
	}

	got, err := repo.ListByPlayer(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].SeasonID != "2023-24" || got[2].SeasonID != "2019-20" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestSeasonRepository_UpsertManyIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedPlayer(t, NewPlayerRepository(db), 1, "Test Player")
	repo := NewSeasonRepository(db)

	err := repo.UpsertMany(ctx, 1, []season.Season{
		testSeason(1, "2022-23", 100),
		testSeason(2, "2023-24", 200),
	})
	if err == nil {
		t.Fatalf("expected error for mismatched player id")
	}

	got, err := repo.ListByPlayer(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected rollback, got %d seasons", len(got))
	}
}

func TestSeasonRepository_UnknownPlayer(t *testing.T) {
	repo := NewSeasonRepository(newTestDB(t))

	err := repo.Upsert(context.Background(), testSeason(404, "2023-24", 1))
	if !errors.Is(err, player.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from foreign key, got %v", err)
	}
}

func TestSeasonRepository_CascadeDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedPlayer(t, NewPlayerRepository(db), 1, "Test Player")
	repo := NewSeasonRepository(db)
	if err := repo.Upsert(ctx, testSeason(1, "2023-24", 1)); err != nil {
		t.Fatalf("seed season: %v", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM players WHERE id = ?", 1); err != nil {
		t.Fatalf("delete player: %v", err)
	}

	got, err := repo.ListByPlayer(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected seasons to be deleted with player, got %d", len(got))
	}
}

func TestOpen_InMemorySharesOneConnection(t *testing.T) {
	db, err := Open(Options{Path: ":memory:", MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected in-memory pool capped at 1 connection, got %d", got)
	}
	if err := Migrate(db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewPlayerRepository(db)
	seedPlayer(t, repo, 203999, "Nikola Jokić")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.GetByID(context.Background(), 203999)
			if err == nil && !ok {
				err = errors.New("player missing from a pooled connection")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("read from in-memory database: %v", err)
		}
	}
}
