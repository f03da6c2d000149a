package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	qb "github.com/riskibarqy/nba-stats/internal/platform/querybuilder"
)

var seasonConflictTarget = []string{"player_id", "season_id"}

type SeasonRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db, now: time.Now}
}

func (r *SeasonRepository) ListByPlayer(ctx context.Context, playerID int64) ([]season.Season, error) {
	query, args, err := qb.Select(seasonSelectColumns...).From("seasons").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("season_id DESC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select seasons by player query: %w", err)
	}

	var rows []seasonTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select seasons by player: %w", err)
	}

	out := make([]season.Season, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SeasonRepository) Get(ctx context.Context, playerID int64, seasonID string) (season.Season, bool, error) {
	query, args, err := qb.Select(seasonSelectColumns...).From("seasons").
		Where(qb.Eq("player_id", playerID), qb.Eq("season_id", seasonID)).
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build select season query: %w", err)
	}

	var row seasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, fmt.Errorf("select season: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *SeasonRepository) Upsert(ctx context.Context, s season.Season) error {
	return r.upsert(ctx, r.db, s, toMillis(r.now()))
}

func (r *SeasonRepository) UpsertMany(ctx context.Context, playerID int64, seasons []season.Season) (err error) {
	if len(seasons) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin season upsert tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	nowMs := toMillis(r.now())
	for _, s := range seasons {
		if s.PlayerID != playerID {
			return fmt.Errorf("season %s belongs to player %d, expected %d", s.SeasonID, s.PlayerID, playerID)
		}
		if err = r.upsert(ctx, tx, s, nowMs); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit season upsert tx: %w", err)
	}
	return nil
}

func (r *SeasonRepository) upsert(ctx context.Context, exec sqlx.ExecerContext, s season.Season, nowMs int64) error {
	query, args, err := qb.UpsertModel("seasons", seasonModelFromDomain(s, nowMs), seasonConflictTarget, "created_at")
	if err != nil {
		return fmt.Errorf("build upsert season query: %w", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: id=%d", player.ErrNotFound, s.PlayerID)
		}
		return fmt.Errorf("upsert season %d/%s: %w", s.PlayerID, s.SeasonID, err)
	}
	return nil
}
