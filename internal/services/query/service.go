package query

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
)

// Service runs filtered event queries and resolves saved views. It owns the
// filter defaults (order, limit, snippet length) so storage stays a plain
// SQL translator.
type Service struct {
	storage interfaces.StorageManager
	config  *common.Config
	logger  arbor.ILogger
}

// NewService creates a new query service
func NewService(storage interfaces.StorageManager, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		config:  config,
		logger:  logger,
	}
}

// Summaries runs a filtered query returning summary rows.
func (s *Service) Summaries(ctx context.Context, filters *models.EventFilters) ([]*models.EventSummary, error) {
	f := s.normalized(filters)
	return s.storage.EventStorage().QuerySummaries(ctx, f, s.useFTS(f), s.config.Index.MaxSnippetLen)
}

// SummariesWithFallback behaves like Summaries but retries a text query as a
// substring scan when the FTS pass yields no rows. Offline search treats an
// FTS miss as best-effort rather than a definitive empty result.
func (s *Service) SummariesWithFallback(ctx context.Context, filters *models.EventFilters) ([]*models.EventSummary, error) {
	f := s.normalized(filters)
	summaries, err := s.storage.EventStorage().QuerySummaries(ctx, f, s.useFTS(f), s.config.Index.MaxSnippetLen)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 && f.Q != "" && s.useFTS(f) {
		s.logger.Debug().Str("q", f.Q).Msg("FTS returned no rows, retrying as substring scan")
		return s.storage.EventStorage().QuerySummaries(ctx, f, false, s.config.Index.MaxSnippetLen)
	}
	return summaries, nil
}

// Events runs a filtered query returning full canonical events.
func (s *Service) Events(ctx context.Context, filters *models.EventFilters) ([]*models.Event, error) {
	f := s.normalized(filters)
	return s.storage.EventStorage().QueryFull(ctx, f, s.useFTS(f))
}

// Search dispatches on the requested format. The returned slice is either
// []*models.EventSummary or []*models.Event; handlers wrap it as {items}.
func (s *Service) Search(ctx context.Context, filters *models.EventFilters) (any, error) {
	if filters.Format == models.FormatFull {
		return s.Events(ctx, filters)
	}
	return s.Summaries(ctx, filters)
}

// GetEvent retrieves a full event by id.
func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.storage.EventStorage().GetEvent(ctx, id)
}

// normalized copies the filters and fills defaults: summaries unless full is
// asked for, newest first, limit 50 capped at 500.
func (s *Service) normalized(filters *models.EventFilters) *models.EventFilters {
	f := *filters
	if f.Format != models.FormatFull {
		f.Format = models.FormatSummary
	}
	if f.Order != models.OrderAsc {
		f.Order = models.OrderDesc
	}
	if f.Limit <= 0 {
		f.Limit = models.DefaultQueryLimit
	}
	if f.Limit > models.MaxQueryLimit {
		f.Limit = models.MaxQueryLimit
	}
	return &f
}

func (s *Service) useFTS(filters *models.EventFilters) bool {
	return s.config.Index.FTS && filters.Q != ""
}
