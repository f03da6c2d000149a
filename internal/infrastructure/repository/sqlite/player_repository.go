package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	qb "github.com/riskibarqy/nba-stats/internal/platform/querybuilder"
	"github.com/riskibarqy/nba-stats/internal/platform/textnorm"
)

type PlayerRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db, now: time.Now}
}

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (player.Player, bool, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player by id query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player by id: %w", err)
	}

	item, err := row.toDomain()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("decode player %d: %w", id, err)
	}
	return item, true, nil
}

func (r *PlayerRepository) SearchByName(ctx context.Context, folded string, limit int) ([]player.Player, error) {
	columns := append(prefixed("p", playerSelectColumns), "MAX(s.season_id) AS latest_season")
	query, args, err := qb.Select(columns...).From("players p").
		LeftJoin("seasons s", "s.player_id = p.id").
		Where(qb.Like("p.search_name", containsPattern(folded))).
		GroupBy("p.id").
		OrderBy("latest_season IS NULL", "latest_season DESC", "p.id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build search players query: %w", err)
	}

	var rows []playerSearchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode player %d: %w", row.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *PlayerRepository) Random(ctx context.Context, limit int) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		OrderBy("RANDOM()").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build random players query: %w", err)
	}
	return r.selectPlayers(ctx, "select random players", query, args)
}

func (r *PlayerRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(qb.Or(qb.IsNull("last_updated"), qb.Lt("last_updated", toMillis(cutoff)))).
		OrderBy("last_updated IS NOT NULL", "last_updated", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build stale players query: %w", err)
	}
	return r.selectPlayers(ctx, "select stale players", query, args)
}

func (r *PlayerRepository) Upsert(ctx context.Context, profile player.Profile) error {
	nowMs := toMillis(r.now())
	query, args, err := qb.UpsertModel("players", playerProfileInsertModel{
		ID:           profile.ID,
		FullName:     profile.FullName,
		SearchName:   textnorm.Fold(profile.FullName),
		Team:         profile.Team,
		Position:     profile.Position,
		JerseyNumber: profile.JerseyNumber,
		CreatedAt:    nowMs,
		UpdatedAt:    nowMs,
	}, []string{"id"}, "created_at")
	if err != nil {
		return fmt.Errorf("build upsert player query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert player %d: %w", profile.ID, err)
	}
	return nil
}

func (r *PlayerRepository) UpdateStats(ctx context.Context, id int64, stats player.Stats, at time.Time) error {
	if stats == nil {
		stats = player.Stats{}
	}
	payload, err := sonic.MarshalString(stats)
	if err != nil {
		return fmt.Errorf("encode stats for player %d: %w", id, err)
	}

	atMs := toMillis(at)
	query, args, err := qb.Update("players").
		Set("latest_stats", payload).
		Set("last_updated", atMs).
		Set("updated_at", toMillis(r.now())).
		Where(
			qb.Eq("id", id),
			qb.Or(qb.IsNull("last_updated"), qb.Lte("last_updated", atMs)),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player stats query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update player stats %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows for player %d: %w", id, err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: id=%d", player.ErrNotFound, id)
	}
	return fmt.Errorf("%w: id=%d at=%d", player.ErrOutdatedSnapshot, id, atMs)
}

func (r *PlayerRepository) exists(ctx context.Context, id int64) (bool, error) {
	query, args, err := qb.Select("COUNT(1)").From("players").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build player exists query: %w", err)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("count player %d: %w", id, err)
	}
	return count > 0, nil
}

func (r *PlayerRepository) selectPlayers(ctx context.Context, op, query string, args []any) ([]player.Player, error) {
	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode player %d: %w", row.ID, err)
		}
		out = append(out, item)
	}
	return out, nil
}
