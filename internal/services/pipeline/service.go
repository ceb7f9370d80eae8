// Package pipeline implements the ingest path: validate draft, dedupe-check,
// append to the canonical log, insert into the index, report per-draft
// results.
package pipeline

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/canonical"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
)

// IngestOptions control a batch. Dedupe suppresses drafts whose key is
// already claimed; DryRun runs validation, dedupe and hashing but skips the
// log append and index insert.
type IngestOptions struct {
	Dedupe bool
	DryRun bool
}

// Service runs drafts through the ingest pipeline. Callers serialize writes:
// the daemon holds the process-wide write mutex, the offline CLI holds the
// canonical-directory file lock.
type Service struct {
	log     *canonical.Log
	storage interfaces.StorageManager
	config  *common.Config
	paths   common.Paths
	logger  arbor.ILogger
	notify  func(*models.Event)
}

// NewService creates the ingest pipeline service.
func NewService(log *canonical.Log, storage interfaces.StorageManager, config *common.Config, paths common.Paths, logger arbor.ILogger) *Service {
	return &Service{
		log:     log,
		storage: storage,
		config:  config,
		paths:   paths,
		logger:  logger,
	}
}

// SetNotify registers a hook called once per inserted event, after the index
// transaction commits. The daemon wires this to the websocket stream.
func (s *Service) SetNotify(fn func(*models.Event)) {
	s.notify = fn
}

// IngestRaw processes undecoded drafts as received on the HTTP surface.
// Per-draft failures are result values; the batch continues past them.
func (s *Service) IngestRaw(ctx context.Context, rawDrafts []any, opts IngestOptions) *models.BatchResult {
	batch := models.NewBatchResult()
	createdAt := common.ISONow(s.config.Location())

	for _, raw := range rawDrafts {
		obj, ok := raw.(map[string]any)
		if !ok {
			batch.Add(models.DraftResult{Status: models.StatusFailed, Error: "Event draft must be an object"})
			continue
		}
		if msg := validateRawDraft(obj); msg != "" {
			batch.Add(models.DraftResult{Status: models.StatusFailed, Error: msg})
			continue
		}
		result, _ := s.ingestDraft(ctx, draftFromRaw(obj), opts, createdAt)
		batch.Add(result)
	}
	return batch
}

// Ingest processes typed drafts, as built by the source adapters and the
// offline CLI. Drafts are processed in order; log-append order matches
// insertion order within the batch.
func (s *Service) Ingest(ctx context.Context, drafts []*models.Draft, opts IngestOptions) *models.BatchResult {
	batch := models.NewBatchResult()
	createdAt := common.ISONow(s.config.Location())

	for _, draft := range drafts {
		if msg := validateDraft(draft); msg != "" {
			batch.Add(models.DraftResult{Status: models.StatusFailed, Error: msg})
			continue
		}
		result, _ := s.ingestDraft(ctx, draft, opts, createdAt)
		batch.Add(result)
	}
	return batch
}

// EmitArtifact appends an artifact.created event describing job output files
// and indexes it through the same append+insert path as batch ingest.
func (s *Service) EmitArtifact(ctx context.Context, refs []models.Ref, tags []string, payload map[string]any) (*models.Event, error) {
	draft := &models.Draft{
		SchemaVersion: common.SchemaVersion,
		TS:            common.ISONow(s.config.Location()),
		Type:          models.EventTypeArtifactCreated,
		Tags:          tags,
		Text:          "artifact created",
		Payload:       payload,
		Source: models.SourceInfo{
			Kind:    models.SourceKindJob,
			Locator: "opsd",
			Meta:    map[string]any{},
		},
		Refs: refs,
	}

	createdAt := common.ISONow(s.config.Location())
	result, event := s.ingestDraft(ctx, draft, IngestOptions{}, createdAt)
	if result.Status != models.StatusInserted {
		return nil, common.GenericError(nil, "artifact event not recorded: %s", result.Error)
	}
	return event, nil
}

// ingestDraft runs one draft through dedupe, hashing, log append and index
// insert. An index failure after a successful append is reported as a failed
// result; the log stays ahead and index_rebuild reconciles.
func (s *Service) ingestDraft(ctx context.Context, draft *models.Draft, opts IngestOptions, createdAt string) (models.DraftResult, *models.Event) {
	var keyPtr *string
	if key, ok := canonical.DedupeKeyForDraft(draft); ok {
		keyPtr = &key
	} else if draft.DedupeKey != "" {
		key := draft.DedupeKey
		keyPtr = &key
	}

	if opts.Dedupe && keyPtr == nil && models.IsChatType(draft.Type) {
		return models.DraftResult{Status: models.StatusFailed, Error: "Unable to compute dedupe_key"}, nil
	}

	if opts.Dedupe && keyPtr != nil {
		existingID, found, err := s.storage.EventStorage().LookupDedupe(ctx, *keyPtr)
		if err != nil {
			return models.DraftResult{Status: models.StatusFailed, DedupeKey: keyPtr, Error: err.Error()}, nil
		}
		if found {
			return models.DraftResult{
				Status:          models.StatusSkipped,
				ExistingEventID: existingID,
				DedupeKey:       keyPtr,
			}, nil
		}
	}

	core := canonical.CoreFromDraft(draft)
	hashValue, err := canonical.EventHashHex(core)
	if err != nil {
		return models.DraftResult{Status: models.StatusFailed, DedupeKey: keyPtr, Error: err.Error()}, nil
	}

	event := &models.Event{
		SchemaVersion: draft.SchemaVersion,
		ID:            canonical.NewULID(),
		TS:            draft.TS,
		Type:          draft.Type,
		Tags:          models.NormalizeTags(draft.Tags),
		Text:          draft.Text,
		Payload:       draft.Payload,
		Source:        draft.Source,
		Refs:          draft.Refs,
		Hash:          models.Hash{Algo: canonical.HashAlgo, Value: hashValue},
		DedupeKey:     keyPtr,
		CreatedAt:     createdAt,
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	if event.Refs == nil {
		event.Refs = []models.Ref{}
	}

	if !opts.DryRun {
		if err := s.log.Append(event); err != nil {
			return models.DraftResult{Status: models.StatusFailed, DedupeKey: keyPtr, Error: err.Error()}, nil
		}
		if err := s.storage.EventStorage().InsertEvent(ctx, event); err != nil {
			s.logger.Warn().
				Str("event_id", event.ID).
				Err(err).
				Msg("Index insert failed after log append; index_rebuild will recover")
			return models.DraftResult{Status: models.StatusFailed, DedupeKey: keyPtr, Error: err.Error()}, nil
		}
		if s.notify != nil {
			s.notify(event)
		}
	}

	return models.DraftResult{
		Status:    models.StatusInserted,
		EventID:   event.ID,
		DedupeKey: keyPtr,
		Hash:      hashValue,
	}, event
}
