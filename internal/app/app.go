package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"

	"github.com/riskibarqy/nba-stats/external/nbastats"
	"github.com/riskibarqy/nba-stats/internal/config"
	"github.com/riskibarqy/nba-stats/internal/domain/playerstats"
	"github.com/riskibarqy/nba-stats/internal/domain/season"
	seasoncache "github.com/riskibarqy/nba-stats/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/nba-stats/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/nba-stats/internal/interfaces/httpapi"
	"github.com/riskibarqy/nba-stats/internal/platform/cache"
	"github.com/riskibarqy/nba-stats/internal/platform/logging"
	"github.com/riskibarqy/nba-stats/internal/platform/metrics"
	"github.com/riskibarqy/nba-stats/internal/platform/resilience"
	"github.com/riskibarqy/nba-stats/internal/usecase"
)

// App owns the HTTP server and the background refresh components behind it.
type App struct {
	Server *http.Server

	cfg       config.Config
	logger    *logging.Logger
	db        *sqlx.DB
	worker    *usecase.RefreshWorker
	scheduler *usecase.RefreshScheduler
}

// OpenDB opens the instrumented SQLite handle and applies migrations when
// DB_AUTO_MIGRATE is set.
func OpenDB(cfg config.Config, logger *logging.Logger) (*sqlx.DB, error) {
	db, err := sqlite.Open(sqlite.Options{
		Path:         cfg.DBPath,
		BusyTimeout:  cfg.DBBusyTimeout,
		MaxOpenConns: cfg.DBMaxOpenConns,
		TraceOptions: []otelsql.Option{otelsql.WithQueryFormatter(formatDBQueryForTrace)},
	})
	if err != nil {
		return nil, err
	}

	if cfg.DBAutoMigrate {
		if err := sqlite.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("database migrations applied", "path", cfg.DBPath)
	}

	return db, nil
}

// NewSeasonRepository returns the SQLite season repository, wrapped in the
// read cache when CACHE_ENABLED is set.
func NewSeasonRepository(cfg config.Config, db *sqlx.DB) season.Repository {
	repo := sqlite.NewSeasonRepository(db)
	if !cfg.CacheEnabled {
		return repo
	}
	return seasoncache.NewSeasonRepository(repo, cache.NewStore[int64, []season.Season](cfg.CacheTTL))
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	db, err := OpenDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder()
	}

	playerRepo := sqlite.NewPlayerRepository(db)
	seasonRepo := NewSeasonRepository(cfg, db)

	playerSvc := usecase.NewPlayerService(playerRepo, seasonRepo)
	statsSvc := usecase.NewStatsService(playerRepo, seasonRepo, newFetcher(cfg, logger), time.Now, logger, recorder, usecase.StatsServiceConfig{
		FreshFor:      cfg.StatsFreshFor,
		RefreshAfter:  cfg.StatsRefreshAfter,
		MaxAge:        cfg.StatsMaxAge,
		FetchTimeout:  cfg.StatsFetchTimeout,
		QueueCapacity: cfg.RefreshQueueCapacity,
	})
	analyticsSvc := usecase.NewAnalyticsService(playerSvc)
	worker := usecase.NewRefreshWorker(statsSvc, logger, recorder, cfg.RefreshQueueDelay)

	var scheduler *usecase.RefreshScheduler
	if cfg.RefreshScheduleEnabled {
		location, err := time.LoadLocation(cfg.RefreshScheduleTZ)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load refresh schedule timezone: %w", err)
		}
		scheduler = usecase.NewRefreshScheduler(playerRepo, statsSvc, logger, recorder, usecase.RefreshSchedulerConfig{
			Spec:       cfg.RefreshSchedule,
			Location:   location,
			StaleAfter: cfg.RefreshStaleAfter,
			BatchSize:  cfg.RefreshBatchSize,
		})
	}

	handler := httpapi.NewHandler(playerSvc, statsSvc, analyticsSvc, worker, scheduler, logger)
	router := httpapi.NewRouter(handler, recorder, logger, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminToken:         cfg.AdminAPIToken,
		MetricsEnabled:     cfg.MetricsEnabled,
	})

	return &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		cfg:       cfg,
		logger:    logger,
		db:        db,
		worker:    worker,
		scheduler: scheduler,
	}, nil
}

// Start launches the refresh worker and, when enabled, the stale sweep schedule.
func (a *App) Start(ctx context.Context) error {
	a.worker.Start(ctx)
	if a.scheduler == nil {
		a.logger.Info("refresh schedule disabled", "reason", "REFRESH_SCHEDULE_ENABLED=false")
		return nil
	}
	if err := a.scheduler.Start(ctx); err != nil {
		a.worker.Stop()
		return err
	}
	a.logger.Info("refresh schedule registered",
		"schedule", a.cfg.RefreshSchedule,
		"timezone", a.cfg.RefreshScheduleTZ,
		"next_run", a.scheduler.NextRun(),
	)
	return nil
}

// Shutdown drains HTTP traffic first, then the background work, then closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.worker.Stop()
	if closeErr := a.db.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func newFetcher(cfg config.Config, logger *logging.Logger) playerstats.Fetcher {
	if !cfg.NBAStatsEnabled {
		logger.Info("nba stats fetcher disabled", "reason", "NBA_STATS_ENABLED=false")
		return disabledFetcher{}
	}

	return nbastats.NewClient(nbastats.ClientConfig{
		BaseURL:    cfg.NBAStatsBaseURL,
		Timeout:    cfg.NBAStatsTimeout,
		MaxRetries: cfg.NBAStatsMaxRetries,
		RateLimit:  cfg.NBAStatsRateLimit,
		Logger:     logger.Named("nbastats"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.NBAStatsCircuitEnabled,
			FailureThreshold: cfg.NBAStatsCircuitFailureCount,
			OpenTimeout:      cfg.NBAStatsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.NBAStatsCircuitHalfOpenMaxReq,
		},
	})
}

// disabledFetcher lets the service run offline against imported data.
type disabledFetcher struct{}

func (disabledFetcher) FetchPlayerSnapshot(_ context.Context, playerID int64) (playerstats.Payload, error) {
	return playerstats.Payload{}, fmt.Errorf("%w: stats source is disabled: player=%d", usecase.ErrDependencyUnavailable, playerID)
}
