package sqlite

import (
	"context"
	"database/sql"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
)

// MetaStorage implements interfaces.MetaStorage for SQLite
type MetaStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewMetaStorage creates a new MetaStorage instance
func NewMetaStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.MetaStorage {
	return &MetaStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a meta value by key
func (s *MetaStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, common.DatabaseError(err, "get meta key %s", key)
	}
	return value, true, nil
}

// Set stores a meta value, replacing any existing value
func (s *MetaStorage) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.DB().ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value,
	); err != nil {
		return common.DatabaseError(err, "set meta key %s", key)
	}
	return nil
}
