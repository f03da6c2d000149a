package usecase

import (
	"errors"
	"fmt"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	"github.com/riskibarqy/nba-stats/internal/platform/resilience"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrUpstreamFetchFailed   = errors.New("upstream fetch failed")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrOutdatedSnapshot      = player.ErrOutdatedSnapshot
	ErrValidation            = season.ErrValidation
)

// storageError classifies a repository failure. Domain sentinels keep their
// meaning, anything else is reported as unavailable storage.
func storageError(op string, err error) error {
	switch {
	case errors.Is(err, player.ErrNotFound):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, op, err)
	case errors.Is(err, player.ErrOutdatedSnapshot), errors.Is(err, season.ErrValidation):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
	}
}

func fetchError(playerID int64, err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: stats source is temporarily unavailable: player=%d: %w", ErrDependencyUnavailable, playerID, err)
	}
	return fmt.Errorf("%w: player=%d: %w", ErrUpstreamFetchFailed, playerID, err)
}
