package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/handlers"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/lock"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/services/query"
	"github.com/ternarybob/opsbrain/internal/services/scheduler"
	"github.com/ternarybob/opsbrain/internal/services/sources"
	"github.com/ternarybob/opsbrain/internal/storage/sqlite"
)

// App holds all daemon components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger
	Paths  common.Paths

	// WriteMu serializes every mutating operation: batch appends, source and
	// view and job CRUD, ingest runs, job runs, artifact packs. Scheduled cron
	// runs take the same mutex. Reads never do.
	WriteMu sync.Mutex

	StorageManager interfaces.StorageManager
	CanonicalLog   *canonical.Log

	// Core services
	PipelineService  *pipeline.Service
	QueryService     *query.Service
	SourceService    *sources.Service
	JobService       *jobs.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	HealthHandler   *handlers.HealthHandler
	EventHandler    *handlers.EventHandler
	SourceHandler   *handlers.SourceHandler
	ViewHandler     *handlers.ViewHandler
	JobHandler      *handlers.JobHandler
	ArtifactHandler *handlers.ArtifactHandler
	StreamHandler   *handlers.StreamHandler

	instanceLock *lock.FileLock
}

// New initializes the daemon with all dependencies. On return the instance
// lock is held and the scheduler is running; the caller owns serving HTTP and
// calling Close.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initWorkspace(); err != nil {
		return nil, fmt.Errorf("failed to initialize workspace: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// The instance lock comes after registry loads but before the scheduler:
	// a second daemon must refuse to start before it can fire a cron job.
	instanceLock, err := lock.AcquireInstance(app.Paths.DaemonLock)
	if err != nil {
		app.StorageManager.Close()
		return nil, err
	}
	app.instanceLock = instanceLock
	logger.Info().Str("path", app.Paths.DaemonLock).Msg("Instance lock acquired")

	if err := app.SchedulerService.Start(context.Background()); err != nil {
		app.instanceLock.Release()
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Str("workspace", app.Paths.Workspace).
		Str("timezone", cfg.Timezone).
		Msg("Application initialization complete")

	return app, nil
}

// initWorkspace resolves the workspace layout and creates missing
// directories plus an empty canonical log.
func (a *App) initWorkspace() error {
	paths, err := a.Config.ResolvePaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureWorkspace(); err != nil {
		return err
	}
	a.Paths = paths

	a.Logger.Debug().
		Str("workspace", paths.Workspace).
		Str("canonical_log", paths.CanonicalLog).
		Msg("Workspace ready")
	return nil
}

// initDatabase opens the SQLite index (creating the schema when missing) and
// the canonical append-only log.
func (a *App) initDatabase() error {
	storageManager, err := sqlite.NewManager(a.Logger, a.Paths.IndexDB)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager

	a.CanonicalLog = canonical.NewLog(a.Paths.CanonicalLog)

	a.Logger.Debug().
		Str("storage", "sqlite").
		Str("path", a.Paths.IndexDB).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes business services in dependency order: pipeline
// (log + index writes), query (reads), sources (registry + ingest), jobs
// (registry + runs), scheduler (cron over jobs).
func (a *App) initServices() error {
	ctx := context.Background()

	a.PipelineService = pipeline.NewService(a.CanonicalLog, a.StorageManager, a.Config, a.Paths, a.Logger)
	a.QueryService = query.NewService(a.StorageManager, a.Config, a.Logger)
	a.SourceService = sources.NewService(a.StorageManager, a.PipelineService, a.Config, a.Logger)
	a.JobService = jobs.NewService(a.StorageManager, a.QueryService, a.PipelineService, a.Config, a.Paths, a.Logger)

	if err := a.QueryService.EnsureBuiltinViews(ctx); err != nil {
		return fmt.Errorf("failed to ensure built-in views: %w", err)
	}

	// Job definitions are workspace files; a broken one is skipped inside the
	// loader, only registry write failures surface here.
	loaded, err := a.JobService.LoadDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load job definitions: %w", err)
	}
	if loaded > 0 {
		a.Logger.Info().Int("count", loaded).Msg("Job definitions loaded")
	}

	a.SchedulerService = scheduler.NewService(a.JobService, a.Config, &a.WriteMu, a.Logger)

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

// initHandlers initializes all HTTP handlers and connects the pipeline's
// insert notifications to the websocket stream.
func (a *App) initHandlers() {
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.EventHandler = handlers.NewEventHandler(a.PipelineService, a.QueryService, a.Logger)
	a.SourceHandler = handlers.NewSourceHandler(a.SourceService, a.Logger)
	a.ViewHandler = handlers.NewViewHandler(a.QueryService, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobService, a.SchedulerService, a.Logger)
	a.ArtifactHandler = handlers.NewArtifactHandler(a.QueryService, a.JobService, a.Config, a.Logger)

	// Broadcasts run off the ingest path so a stalled websocket client cannot
	// hold up a batch.
	a.StreamHandler = handlers.NewStreamHandler(&a.Config.Server.Stream, a.Logger)
	a.PipelineService.SetNotify(func(event *models.Event) {
		common.SafeGo(a.Logger, "stream notify", func() { a.StreamHandler.Notify(event) })
	})

	a.Logger.Debug().Msg("Handlers initialized")
}

// Close stops the scheduler, releases the instance lock, and closes storage.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}

	if a.instanceLock != nil {
		if err := a.instanceLock.Release(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to release instance lock")
		} else {
			a.Logger.Info().Msg("Instance lock released")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
