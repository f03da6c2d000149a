package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/nba-stats/internal/domain/player"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
)

const (
	defaultImportWorkers = 4
	maxImportWorkers     = 16
)

// ImportRow is one player's profile with at most one season line.
type ImportRow struct {
	Line     int
	Profile  player.Profile
	SeasonID string
	Fields   map[string]any
}

type ImportPlayerError struct {
	PlayerID int64  `json:"player_id"`
	Message  string `json:"message"`
}

type ImportResult struct {
	Rows        int                 `json:"rows"`
	Players     int                 `json:"players"`
	Seasons     int                 `json:"seasons"`
	Failed      int                 `json:"failed"`
	WorkerCount int                 `json:"worker_count"`
	Errors      []ImportPlayerError `json:"errors,omitempty"`
}

// ImportService bulk loads player profiles and seasons. Each player is
// written independently so one bad player does not fail the batch.
type ImportService struct {
	players *PlayerService
	logger  *logging.Logger
}

func NewImportService(players *PlayerService, logger *logging.Logger) *ImportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImportService{players: players, logger: logger.Named("import")}
}

// ImportCSV parses r and imports its rows.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader, workers int) (ImportResult, error) {
	rows, err := ParseImportCSV(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.Import(ctx, rows, workers)
}

type importBatch struct {
	playerID int64
	profile  player.Profile
	rows     []ImportRow
}

func (s *ImportService) Import(ctx context.Context, rows []ImportRow, workers int) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.Import")
	defer span.End()

	batches := groupImportRows(rows)
	if len(batches) == 0 {
		return ImportResult{Rows: len(rows)}, nil
	}
	workerCount := normalizeImportWorkers(workers, len(batches))
	result := ImportResult{Rows: len(rows), WorkerCount: workerCount}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return ImportResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		players  atomic.Int32
		seasons  atomic.Int32
		errorsMu sync.Mutex
		failures []ImportPlayerError
		workersG sync.WaitGroup
	)

	for _, batch := range batches {
		workersG.Add(1)
		if err := pool.Submit(func() {
			defer workersG.Done()

			written, err := s.importPlayer(ctx, batch)
			if err != nil {
				s.logger.WarnContext(ctx, "import player failed", "player_id", batch.playerID, "error", err)
				errorsMu.Lock()
				failures = append(failures, ImportPlayerError{PlayerID: batch.playerID, Message: err.Error()})
				errorsMu.Unlock()
				return
			}
			players.Add(1)
			seasons.Add(int32(written))
		}); err != nil {
			workersG.Done()
			return ImportResult{}, fmt.Errorf("submit import task to worker pool: %w", err)
		}
	}
	workersG.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].PlayerID < failures[j].PlayerID })
	result.Players = int(players.Load())
	result.Seasons = int(seasons.Load())
	result.Failed = len(failures)
	result.Errors = failures

	s.logger.InfoContext(ctx, "import finished",
		"rows", result.Rows,
		"players", result.Players,
		"seasons", result.Seasons,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *ImportService) importPlayer(ctx context.Context, batch importBatch) (int, error) {
	items := make([]season.Season, 0, len(batch.rows))
	for _, row := range batch.rows {
		if row.SeasonID == "" {
			continue
		}
		item, err := season.FromFields(batch.playerID, row.SeasonID, row.Fields)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", row.Line, err)
		}
		items = append(items, item)
	}

	if _, err := s.players.UpsertProfile(ctx, batch.profile); err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := s.players.seasonRepo.UpsertMany(ctx, batch.playerID, items); err != nil {
		return 0, storageError("write imported seasons", err)
	}
	return len(items), nil
}

// groupImportRows keeps first-seen player order; the last row's profile wins.
func groupImportRows(rows []ImportRow) []importBatch {
	index := make(map[int64]int, len(rows))
	out := make([]importBatch, 0)
	for _, row := range rows {
		pos, ok := index[row.Profile.ID]
		if !ok {
			pos = len(out)
			index[row.Profile.ID] = pos
			out = append(out, importBatch{playerID: row.Profile.ID})
		}
		out[pos].profile = row.Profile
		out[pos].rows = append(out[pos].rows, row)
	}
	return out
}

func normalizeImportWorkers(requested, tasks int) int {
	workers := requested
	if workers <= 0 {
		workers = defaultImportWorkers
	}
	return max(min(workers, maxImportWorkers, tasks), 1)
}

// IsImportInputError reports whether err came from malformed import input.
func IsImportInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrValidation)
}
