package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/multierr"

	"github.com/vietddude/fraudlens/internal/analysis"
	"github.com/vietddude/fraudlens/internal/api"
	"github.com/vietddude/fraudlens/internal/core/config"
	"github.com/vietddude/fraudlens/internal/core/worker"
	"github.com/vietddude/fraudlens/internal/health"
	"github.com/vietddude/fraudlens/internal/infra/etherscan"
	redisclient "github.com/vietddude/fraudlens/internal/infra/redis"
	"github.com/vietddude/fraudlens/internal/infra/scoring"
	"github.com/vietddude/fraudlens/internal/infra/storage"
	"github.com/vietddude/fraudlens/internal/infra/storage/memory"
	"github.com/vietddude/fraudlens/internal/infra/storage/postgres"
	"github.com/vietddude/fraudlens/internal/prediction"
)

// App owns every long-lived component and their lifecycle.
type App struct {
	cfg         *config.AppConfig
	service     *analysis.Service
	coordinator *prediction.Coordinator
	scoring     *scoring.Client
	router      *api.Router
	server      *api.Server
	monitor     *health.Monitor
	pruner      *worker.Pruner
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewApp creates the application with all dependencies initialized.
// Postgres and Redis are used when configured; otherwise state lives in memory.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	app := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	// 1. Initialize Storage
	var reportRepo storage.ReportRepository
	var abandonedRepo storage.AbandonedRepository
	pingers := make(map[string]storage.Pinger)

	if cfg.Database.Enabled() {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		pingers["postgres"] = db
		reportRepo = postgres.NewReportRepo(db)
		abandonedRepo = postgres.NewAbandonedRepo(db)
		app.log.Info("Using PostgreSQL storage", "driver", cfg.Database.Driver)
	} else {
		store := memory.NewMemoryStorage()
		reportRepo = memory.NewReportRepo(store)
		abandonedRepo = memory.NewAbandonedRepo(store)
		app.log.Info("Using in-memory storage")
	}

	if cfg.Redis.Enabled() {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			_ = app.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.redisClient = rc
		pingers["redis"] = rc
		abandonedRepo = redisclient.NewAbandonedRepo(rc, cfg.Redis.TTL)
		app.log.Info("Using Redis for abandoned addresses")
	}

	// 2. Scoring
	app.scoring = scoring.NewClient(cfg.Scoring.URL, cfg.Scoring.Timeout)
	var scorer scoring.Scorer = app.scoring
	if cfg.Scoring.CacheSize > 0 {
		cached, err := scoring.NewCachedScorer(app.scoring, cfg.Scoring.CacheSize, cfg.Scoring.CacheTTL)
		if err != nil {
			_ = app.closeStores()
			return nil, err
		}
		scorer = cached
	}

	app.coordinator = prediction.NewCoordinator(prediction.Config{
		Permits:        cfg.Prediction.Permits,
		MaxRounds:      cfg.Prediction.MaxRounds,
		FailureCeiling: cfg.Prediction.FailureCeiling,
		BaseDelay:      cfg.Prediction.BaseDelay,
		MaxDelay:       cfg.Prediction.MaxDelay,
	}, scorer)

	// 3. Transaction source
	txSource := etherscan.NewClient(cfg.Etherscan.URL, cfg.Etherscan.APIKey, cfg.Etherscan.Timeout)
	if !txSource.HasAPIKey() {
		app.log.Warn("ETHERSCAN_API_KEY is not set, analyses will fail")
	}

	// 4. Service, health and HTTP
	app.service = analysis.NewService(txSource, app.coordinator, reportRepo, abandonedRepo)
	app.monitor = health.NewMonitor(app.scoring, app.coordinator.Limiter(), abandonedRepo, pingers)
	app.router = api.NewRouter(app.service, app.monitor)
	app.server = api.NewServer(app.router, cfg.Server.Host, cfg.Server.Port)
	app.pruner = worker.NewPruner(cfg.Reports.Retention, reportRepo)

	return app, nil
}

// Service returns the analysis service.
func (a *App) Service() *analysis.Service {
	return a.service
}

// Router returns the HTTP router.
func (a *App) Router() *api.Router {
	return a.router
}

// Start starts the HTTP server and background collectors. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		a.log.Info("HTTP server listening", "addr", a.server.Addr())
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
	go a.pruner.Start(ctx)
	return nil
}

// Stop shuts the server down and releases every connection.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping fraudlens...")

	err := a.server.Stop(ctx)
	err = multierr.Append(err, a.scoring.Close())
	err = multierr.Append(err, a.closeStores())
	return err
}

// Close releases connections without touching the HTTP server.
func (a *App) Close() error {
	return multierr.Append(a.scoring.Close(), a.closeStores())
}

func (a *App) closeStores() error {
	var err error
	if a.redisClient != nil {
		err = multierr.Append(err, a.redisClient.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}
