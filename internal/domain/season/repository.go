package season

import "context"

// Repository describes season persistence needs from use cases.
type Repository interface {
	// ListByPlayer returns seasons ordered by season id, most recent first.
	ListByPlayer(ctx context.Context, playerID int64) ([]Season, error)
	Get(ctx context.Context, playerID int64, seasonID string) (Season, bool, error)
	Upsert(ctx context.Context, s Season) error
	// UpsertMany replaces every given season of one player in a single transaction.
	UpsertMany(ctx context.Context, playerID int64, seasons []Season) error
}
