package player

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("player not found")

	// ErrOutdatedSnapshot is returned when a stats write is older than the stored one.
	ErrOutdatedSnapshot = errors.New("stats snapshot is older than stored snapshot")
)

// Repository describes player persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Player, bool, error)
	// SearchByName matches folded names by substring, most recent season first.
	SearchByName(ctx context.Context, folded string, limit int) ([]Player, error)
	Random(ctx context.Context, limit int) ([]Player, error)
	// ListStale returns players refreshed before cutoff or never, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Player, error)
	Upsert(ctx context.Context, profile Profile) error
	// UpdateStats stores stats with LastUpdated=at. It returns ErrNotFound for an
	// unknown id and ErrOutdatedSnapshot when the stored LastUpdated is later than at.
	UpdateStats(ctx context.Context, id int64, stats Stats, at time.Time) error
}
