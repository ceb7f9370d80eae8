package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/services/query"
	"github.com/ternarybob/opsbrain/internal/services/sources"
	"github.com/ternarybob/opsbrain/internal/storage/sqlite"
)

// Core is the offline composition: the same log, index and services the
// daemon runs, without handlers, scheduler or the instance lock. The CLI uses
// it when no daemon is reachable. Writers must hold the canonical-directory
// write lock themselves; Core does not serialize.
type Core struct {
	Config *common.Config
	Logger arbor.ILogger
	Paths  common.Paths

	StorageManager interfaces.StorageManager
	CanonicalLog   *canonical.Log

	PipelineService *pipeline.Service
	QueryService    *query.Service
	SourceService   *sources.Service
	JobService      *jobs.Service
}

// NewCore opens the workspace for in-process use. Missing directories and an
// empty canonical log are created, matching daemon startup, so reads against
// a fresh workspace see an empty index instead of an open error.
func NewCore(cfg *common.Config, logger arbor.ILogger) (*Core, error) {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureWorkspace(); err != nil {
		return nil, err
	}

	storageManager, err := sqlite.NewManager(logger, paths.IndexDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	core := &Core{
		Config:         cfg,
		Logger:         logger,
		Paths:          paths,
		StorageManager: storageManager,
		CanonicalLog:   canonical.NewLog(paths.CanonicalLog),
	}
	core.PipelineService = pipeline.NewService(core.CanonicalLog, storageManager, cfg, paths, logger)
	core.QueryService = query.NewService(storageManager, cfg, logger)
	core.SourceService = sources.NewService(storageManager, core.PipelineService, cfg, logger)
	core.JobService = jobs.NewService(storageManager, core.QueryService, core.PipelineService, cfg, paths, logger)

	return core, nil
}

// Close closes the index.
func (c *Core) Close() error {
	if c.StorageManager != nil {
		return c.StorageManager.Close()
	}
	return nil
}
