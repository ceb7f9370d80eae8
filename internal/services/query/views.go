package query

import (
	"context"

	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/models"
)

// EnsureBuiltinViews seeds the built-in views if missing. User edits to
// these names survive restarts; only absent names are written.
func (s *Service) EnsureBuiltinViews(ctx context.Context) error {
	now := common.ISONow(s.config.Location())
	builtins := []*models.View{
		{
			Name:      "timeline",
			Query:     models.ViewQuery{Kind: models.ViewQueryKindEvents, Order: models.OrderDesc},
			CreatedAt: now,
		},
		{
			Name:      "tag_timeline",
			Query:     models.ViewQuery{Kind: models.ViewQueryKindEvents, Order: models.OrderDesc},
			CreatedAt: now,
		},
	}
	for _, view := range builtins {
		if err := s.storage.ViewStorage().EnsureView(ctx, view); err != nil {
			return err
		}
	}
	return nil
}

// CreateView validates and stores a saved view.
func (s *Service) CreateView(ctx context.Context, view *models.View) error {
	if view.Name == "" {
		return common.ValidationError("view name is required")
	}
	if view.Query.Kind == "" {
		view.Query.Kind = models.ViewQueryKindEvents
	}
	if view.Query.Kind != models.ViewQueryKindEvents {
		return common.ValidationError("unsupported view query kind: %s", view.Query.Kind)
	}
	if view.CreatedAt == "" {
		view.CreatedAt = common.ISONow(s.config.Location())
	}
	return s.storage.ViewStorage().CreateView(ctx, view)
}

// GetView loads a saved view by name.
func (s *Service) GetView(ctx context.Context, name string) (*models.View, error) {
	return s.storage.ViewStorage().GetView(ctx, name)
}

// ListViews lists all saved views.
func (s *Service) ListViews(ctx context.Context) ([]*models.View, error) {
	return s.storage.ViewStorage().ListViews(ctx)
}

// DeleteView removes a saved view by name.
func (s *Service) DeleteView(ctx context.Context, name string) error {
	return s.storage.ViewStorage().DeleteView(ctx, name)
}

// QueryView merges the request filters into the named view's stored filters
// and runs the query.
func (s *Service) QueryView(ctx context.Context, name string, filters *models.EventFilters) (any, error) {
	view, err := s.storage.ViewStorage().GetView(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.Search(ctx, MergeViewFilters(view, filters))
}

// MergeViewFilters merges a view's stored partial query with request filters.
// Types intersect when both are set, tags union in first-occurrence order,
// the time window narrows (max after, min before), and the request's order
// wins when it names one.
func MergeViewFilters(view *models.View, req *models.EventFilters) *models.EventFilters {
	merged := *req
	stored := view.Query.Filters

	switch {
	case len(stored.Type) > 0 && len(req.Types) > 0:
		merged.Types = intersect(stored.Type, req.Types)
	case len(stored.Type) > 0:
		merged.Types = append([]string(nil), stored.Type...)
	}

	if len(stored.Tag) > 0 {
		merged.Tags = models.NormalizeTags(append(append([]string(nil), stored.Tag...), req.Tags...))
	}

	if stored.After != "" && (merged.After == "" || stored.After > merged.After) {
		merged.After = stored.After
	}
	if stored.Before != "" && (merged.Before == "" || stored.Before < merged.Before) {
		merged.Before = stored.Before
	}

	if merged.Order == "" {
		merged.Order = view.Query.Order
	}

	return &merged
}

// intersect keeps the stored values present in the request, in stored order.
func intersect(stored, requested []string) []string {
	want := make(map[string]struct{}, len(requested))
	for _, v := range requested {
		want[v] = struct{}{}
	}
	out := make([]string, 0, len(stored))
	for _, v := range stored {
		if _, ok := want[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
