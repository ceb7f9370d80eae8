package sqlite

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/interfaces"
)

// Manager implements the StorageManager interface
type Manager struct {
	db     *SQLiteDB
	event  interfaces.EventStorage
	source interfaces.SourceStorage
	view   interfaces.ViewStorage
	job    interfaces.JobStorage
	meta   interfaces.MetaStorage
	logger arbor.ILogger
}

// NewManager opens the index database at dbPath and wires the per-entity
// storage implementations around the shared connection.
func NewManager(logger arbor.ILogger, dbPath string) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, dbPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:     db,
		event:  NewEventStorage(db, logger),
		source: NewSourceStorage(db, logger),
		view:   NewViewStorage(db, logger),
		job:    NewJobStorage(db, logger),
		meta:   NewMetaStorage(db, logger),
		logger: logger,
	}, nil
}

// EventStorage returns the event storage interface
func (m *Manager) EventStorage() interfaces.EventStorage {
	return m.event
}

// SourceStorage returns the source storage interface
func (m *Manager) SourceStorage() interfaces.SourceStorage {
	return m.source
}

// ViewStorage returns the view storage interface
func (m *Manager) ViewStorage() interfaces.ViewStorage {
	return m.view
}

// JobStorage returns the job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// MetaStorage returns the meta storage interface
func (m *Manager) MetaStorage() interfaces.MetaStorage {
	return m.meta
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.DB()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
