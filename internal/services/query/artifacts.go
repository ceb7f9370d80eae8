package query

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ternarybob/opsbrain/internal/models"
)

// ListArtifacts derives artifact items from artifact.created events matching
// the given filters. Type and format are forced; the caller's tag and time
// window apply.
func (s *Service) ListArtifacts(ctx context.Context, filters *models.EventFilters) ([]*models.Artifact, error) {
	f := *filters
	f.Types = []string{models.EventTypeArtifactCreated}
	f.Format = models.FormatFull

	events, err := s.Events(ctx, &f)
	if err != nil {
		return nil, err
	}

	artifacts := make([]*models.Artifact, 0, len(events))
	for _, event := range events {
		artifacts = append(artifacts, ArtifactFromEvent(event))
	}
	return artifacts, nil
}

// ArtifactFromEvent projects an artifact.created event onto the artifact
// item shape. Path is the first file: ref; kind derives from its extension.
func ArtifactFromEvent(event *models.Event) *models.Artifact {
	var path string
	for _, ref := range event.Refs {
		if strings.HasPrefix(ref.URI, "file:") {
			path = strings.TrimPrefix(ref.URI, "file:")
			break
		}
	}

	kind := "other"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		kind = "markdown"
	case ".json":
		kind = "json"
	}

	return &models.Artifact{
		Path:      path,
		Kind:      kind,
		CreatedAt: event.TS,
		Refs:      event.Refs,
		EventID:   event.ID,
	}
}
