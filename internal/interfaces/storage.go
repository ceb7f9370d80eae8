package interfaces

import (
	"context"

	"github.com/ternarybob/opsbrain/internal/models"
)

// EventStorage - interface for the append-only event index
type EventStorage interface {
	// Write operations. InsertEvent stores the event row, its refs and,
	// when the event carries a dedupe key, the dedupe mapping in one
	// transaction.
	InsertEvent(ctx context.Context, event *models.Event) error

	// Read operations
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	EventExists(ctx context.Context, id string) (bool, error)
	LookupDedupe(ctx context.Context, dedupeKey string) (string, bool, error)

	// Query operations. QuerySummaries trims text to snippetLen runes,
	// QueryFull returns complete canonical events. Both accept fts=false
	// to force a substring scan instead of the FTS5 index.
	QuerySummaries(ctx context.Context, filters *models.EventFilters, fts bool, snippetLen int) ([]*models.EventSummary, error)
	QueryFull(ctx context.Context, filters *models.EventFilters, fts bool) ([]*models.Event, error)

	// Stats operations
	CountEvents(ctx context.Context) (int, error)
	CountDedupe(ctx context.Context) (int, error)

	// Wipe clears events, refs and dedupe mappings and rebuilds the FTS
	// shadow table. Used by index_rebuild with wipe=true.
	Wipe(ctx context.Context) error

	// RebuildFTS resyncs the FTS shadow table from the events table. Used
	// after a replay over an index whose FTS rows may predate the triggers.
	RebuildFTS(ctx context.Context) error
}

// SourceStorage - interface for registered ingestion sources
type SourceStorage interface {
	CreateSource(ctx context.Context, source *models.Source) error
	GetSource(ctx context.Context, name string) (*models.Source, error)
	ListSources(ctx context.Context) ([]*models.Source, error)
	DeleteSource(ctx context.Context, name string) error
}

// ViewStorage - interface for saved queries
type ViewStorage interface {
	CreateView(ctx context.Context, view *models.View) error
	// EnsureView inserts the view only when the name is free. Built-in
	// views are seeded this way so user edits survive restarts.
	EnsureView(ctx context.Context, view *models.View) error
	GetView(ctx context.Context, name string) (*models.View, error)
	ListViews(ctx context.Context) ([]*models.View, error)
	DeleteView(ctx context.Context, name string) error
}

// JobStorage - interface for job definitions and run history
type JobStorage interface {
	CreateJob(ctx context.Context, job *models.Job) error
	UpsertJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, name string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	DeleteJob(ctx context.Context, name string) error

	// Run lifecycle
	InsertRun(ctx context.Context, run *models.JobRun) error
	FinishRun(ctx context.Context, run *models.JobRun) error
	GetRun(ctx context.Context, id string) (*models.JobRun, error)
	ListRuns(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error)
}

// MetaStorage - interface for the key/value meta table
type MetaStorage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	EventStorage() EventStorage
	SourceStorage() SourceStorage
	ViewStorage() ViewStorage
	JobStorage() JobStorage
	MetaStorage() MetaStorage
	DB() interface{}
	Close() error
}
