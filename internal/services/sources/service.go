// Package sources owns the source registry: named adapter configurations
// that the ingest endpoints read chat-JSON files through.
package sources

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
	"github.com/ternarybob/opsbrain/internal/services/pipeline"
)

// Service manages registered sources and runs ingests through the pipeline.
type Service struct {
	storage  interfaces.StorageManager
	pipeline *pipeline.Service
	config   *common.Config
	logger   arbor.ILogger
}

// NewService creates the source registry service.
func NewService(storage interfaces.StorageManager, pipelineSvc *pipeline.Service, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		storage:  storage,
		pipeline: pipelineSvc,
		config:   config,
		logger:   logger,
	}
}

// CreateSource validates and registers a source. Only the chat_json_file
// adapter kind is registered; config gains copy=true unless the caller set
// it.
func (s *Service) CreateSource(ctx context.Context, source *models.Source) error {
	if source.Name == "" {
		return common.ValidationError("name is required")
	}
	if source.Kind == "" {
		return common.ValidationError("kind is required")
	}
	if source.Kind != models.SourceKindChatJSONFile {
		return common.ValidationError("Unsupported source kind: %s", source.Kind)
	}
	source.Config = normalizeConfig(source.Config)
	if source.Tags == nil {
		source.Tags = []string{}
	}
	if source.CreatedAt == "" {
		source.CreatedAt = common.ISONow(s.config.Location())
	}

	if err := s.storage.SourceStorage().CreateSource(ctx, source); err != nil {
		return err
	}
	s.logger.Info().
		Str("source", source.Name).
		Str("kind", source.Kind).
		Msg("Source registered")
	return nil
}

// GetSource loads a source by name.
func (s *Service) GetSource(ctx context.Context, name string) (*models.Source, error) {
	return s.storage.SourceStorage().GetSource(ctx, name)
}

// ListSources lists registered sources, newest first.
func (s *Service) ListSources(ctx context.Context) ([]*models.Source, error) {
	return s.storage.SourceStorage().ListSources(ctx)
}

// DeleteSource removes a source by name. Missing names are not an error;
// deletes are idempotent on the HTTP surface.
func (s *Service) DeleteSource(ctx context.Context, name string) error {
	err := s.storage.SourceStorage().DeleteSource(ctx, name)
	if err != nil && common.IsNotFound(err) {
		return nil
	}
	return err
}

// TestSource checks that a source's config.path names a readable file.
// A failing check is returned as the error; the handler renders it as
// {ok:false, error}.
func (s *Service) TestSource(ctx context.Context, name string) (map[string]any, error) {
	source, err := s.storage.SourceStorage().GetSource(ctx, name)
	if err != nil {
		return nil, err
	}
	return pipeline.TestSource(source)
}

// RunIngest reads the source file, builds one draft per record and ingests
// the batch with dedupe on. DryRun validates and dedupe-checks without
// writing.
func (s *Service) RunIngest(ctx context.Context, name string, extraTags []string, dryRun bool) (*models.BatchResult, error) {
	source, err := s.storage.SourceStorage().GetSource(ctx, name)
	if err != nil {
		return nil, err
	}

	drafts, err := s.pipeline.BuildSourceDrafts(source, extraTags)
	if err != nil {
		return nil, err
	}

	result := s.pipeline.Ingest(ctx, drafts, pipeline.IngestOptions{Dedupe: true, DryRun: dryRun})
	s.logger.Info().
		Str("source", name).
		Int("new", result.New).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Ingest run finished")
	return result, nil
}

// normalizeConfig fills the copy default so stored configs are explicit
// about archiving behavior.
func normalizeConfig(config map[string]any) map[string]any {
	normalized := map[string]any{}
	for k, v := range config {
		normalized[k] = v
	}
	if _, ok := normalized["copy"]; !ok {
		normalized["copy"] = true
	}
	return normalized
}
