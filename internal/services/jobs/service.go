// Package jobs owns the job registry and the registered job kinds:
// daily_digest, artifact_pack and index_rebuild. Jobs execute synchronously
// under the daemon write mutex; each run records exactly one job_runs row
// transition from running to ok or failed.
package jobs

import (
	"context"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/pdf"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
	"github.com/ternarybob/opsbrain/internal/services/query"
)

// Service executes jobs against the index and emits artifact.created events
// for their outputs through the ingest pipeline.
type Service struct {
	storage  interfaces.StorageManager
	query    *query.Service
	pipeline *pipeline.Service
	renderer *pdf.Renderer
	config   *common.Config
	paths    common.Paths
	logger   arbor.ILogger
}

// NewService creates the job service.
func NewService(storage interfaces.StorageManager, querySvc *query.Service, pipelineSvc *pipeline.Service, config *common.Config, paths common.Paths, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		query:    querySvc,
		pipeline: pipelineSvc,
		renderer: pdf.NewRenderer(logger),
		config:   config,
		paths:    paths,
		logger:   logger,
	}
}

// CreateJob validates and registers a job.
func (s *Service) CreateJob(ctx context.Context, job *models.Job) error {
	if job.Name == "" {
		return common.ValidationError("name is required")
	}
	if job.Kind == "" {
		return common.ValidationError("kind is required")
	}
	if job.Config == nil {
		job.Config = map[string]any{}
	}
	if job.CreatedAt == "" {
		job.CreatedAt = common.ISONow(s.config.Location())
	}
	return s.storage.JobStorage().CreateJob(ctx, job)
}

// GetJob loads a job by name.
func (s *Service) GetJob(ctx context.Context, name string) (*models.Job, error) {
	return s.storage.JobStorage().GetJob(ctx, name)
}

// ListJobs lists all registered jobs.
func (s *Service) ListJobs(ctx context.Context) ([]*models.Job, error) {
	return s.storage.JobStorage().ListJobs(ctx)
}

// DeleteJob removes a job and its run history.
func (s *Service) DeleteJob(ctx context.Context, name string) error {
	return s.storage.JobStorage().DeleteJob(ctx, name)
}

// ListRuns returns the most recent runs for a job, newest first.
func (s *Service) ListRuns(ctx context.Context, name string, limit int) ([]*models.JobRun, error) {
	if _, err := s.storage.JobStorage().GetJob(ctx, name); err != nil {
		return nil, err
	}
	return s.storage.JobStorage().ListRuns(ctx, name, limit)
}

// Run executes the named job now. The run row is inserted with status
// running before execution and finished exactly once. An execution failure
// is recorded on the returned run, not surfaced as an error; errors are
// reserved for unknown jobs and run-bookkeeping failures.
func (s *Service) Run(ctx context.Context, name string) (*models.JobRun, error) {
	job, err := s.storage.JobStorage().GetJob(ctx, name)
	if err != nil {
		return nil, err
	}

	run := &models.JobRun{
		ID:        canonical.NewULID(),
		JobName:   job.Name,
		StartedAt: common.ISONow(s.config.Location()),
		Status:    models.RunStatusRunning,
	}
	if err := s.storage.JobStorage().InsertRun(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job", job.Name).
		Str("kind", job.Kind).
		Str("run_id", run.ID).
		Msg("Job run started")

	output, execErr := s.execute(ctx, job)
	finished := common.ISONow(s.config.Location())
	run.FinishedAt = &finished
	if execErr != nil {
		msg := execErr.Error()
		run.Status = models.RunStatusFailed
		run.Error = &msg
		run.Output = map[string]any{}
		s.logger.Warn().
			Str("job", job.Name).
			Str("run_id", run.ID).
			Err(execErr).
			Msg("Job run failed")
	} else {
		run.Status = models.RunStatusOK
		run.Output = output
		s.logger.Info().
			Str("job", job.Name).
			Str("run_id", run.ID).
			Msg("Job run finished")
	}

	if err := s.storage.JobStorage().FinishRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// execute dispatches on the job kind.
func (s *Service) execute(ctx context.Context, job *models.Job) (map[string]any, error) {
	switch job.Kind {
	case models.JobKindDailyDigest:
		return s.runDailyDigest(ctx, job)

	case models.JobKindArtifactPack:
		tag := configString(job.Config, "tag")
		outDir := configString(job.Config, "out_dir")
		if tag == "" || outDir == "" {
			return nil, common.ValidationError("artifact_pack config requires tag and out_dir")
		}
		result, err := s.RunArtifactPack(ctx, tag, outDir)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"pack_path":   result.PackPath,
			"readme_path": result.ReadmePath,
			"assets":      result.Assets,
		}, nil

	case models.JobKindIndexRebuild:
		counts, err := s.RunIndexRebuild(ctx, "", configBool(job.Config, "wipe"), configBool(job.Config, "fts"))
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"processed":    counts.Processed,
			"inserted":     counts.Inserted,
			"skipped":      counts.Skipped,
			"parse_errors": counts.ParseErrors,
		}, nil

	default:
		return nil, common.ValidationError("unsupported job kind: %s", job.Kind)
	}
}

// resolveOutDir anchors relative output directories at the workspace root.
func (s *Service) resolveOutDir(outDir string) string {
	if filepath.IsAbs(outDir) {
		return outDir
	}
	return filepath.Join(s.paths.Workspace, outDir)
}

// Job config arrives decoded from JSON or TOML, so values sit behind any.

func configString(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

func configBool(config map[string]any, key string) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return false
}

func configStrings(config map[string]any, key string) []string {
	switch v := config[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
