package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/jobs"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/services/query"
	"github.com/ternarybob/opsbrain/internal/storage/sqlite"
)

func setupScheduler(t *testing.T) (*Service, *jobs.Service) {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Workspace = t.TempDir()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureWorkspace())

	logger := arbor.NewLogger()
	storage, err := sqlite.NewManager(logger, paths.IndexDB)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	log := canonical.NewLog(paths.CanonicalLog)
	pipelineSvc := pipeline.NewService(log, storage, cfg, paths, logger)
	querySvc := query.NewService(storage, cfg, logger)
	jobsSvc := jobs.NewService(storage, querySvc, pipelineSvc, cfg, paths, logger)

	return NewService(jobsSvc, cfg, &sync.Mutex{}, logger), jobsSvc
}

func addJob(t *testing.T, jobsSvc *jobs.Service, name string, enabled bool, schedule string) {
	t.Helper()
	config := map[string]any{}
	if schedule != "" {
		config["schedule"] = schedule
	}
	require.NoError(t, jobsSvc.CreateJob(context.Background(), &models.Job{
		Name:    name,
		Kind:    models.JobKindIndexRebuild,
		Config:  config,
		Enabled: enabled,
	}))
}

func TestStartRegistersEnabledScheduledJobs(t *testing.T) {
	svc, jobsSvc := setupScheduler(t)
	ctx := context.Background()

	addJob(t, jobsSvc, "nightly", true, "0 3 * * *")
	addJob(t, jobsSvc, "paused", false, "0 4 * * *")
	addJob(t, jobsSvc, "manual", true, "")

	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()

	assert.Equal(t, []string{"nightly"}, svc.Scheduled())
}

func TestStartTwiceFails(t *testing.T) {
	svc, _ := setupScheduler(t)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()

	err := svc.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestStopWithoutStart(t *testing.T) {
	svc, _ := setupScheduler(t)
	svc.Stop()
	svc.Stop()
}

func TestReloadTracksRegistryChanges(t *testing.T) {
	svc, jobsSvc := setupScheduler(t)
	ctx := context.Background()

	addJob(t, jobsSvc, "nightly", true, "0 3 * * *")
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop()
	require.Len(t, svc.Scheduled(), 1)

	addJob(t, jobsSvc, "hourly", true, "0 * * * *")
	require.NoError(t, svc.Reload(ctx))
	assert.Len(t, svc.Scheduled(), 2)

	require.NoError(t, jobsSvc.DeleteJob(ctx, "nightly"))
	require.NoError(t, svc.Reload(ctx))
	assert.Equal(t, []string{"hourly"}, svc.Scheduled())
}

func TestInvalidScheduleSkipped(t *testing.T) {
	svc, jobsSvc := setupScheduler(t)
	ctx := context.Background()

	addJob(t, jobsSvc, "broken", true, "ten past never")

	require.NoError(t, svc.Start(ctx), "a bad expression is logged, not fatal")
	defer svc.Stop()
	assert.Empty(t, svc.Scheduled())
}

func TestRunJobRecordsRun(t *testing.T) {
	svc, jobsSvc := setupScheduler(t)
	ctx := context.Background()

	addJob(t, jobsSvc, "nightly", true, "0 3 * * *")

	svc.runJob("nightly")

	runs, err := jobsSvc.ListRuns(ctx, "nightly", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusOK, runs[0].Status)

	// Unknown names only log; the cron table may outlive a deleted job by
	// one firing.
	svc.runJob("deleted")
}
