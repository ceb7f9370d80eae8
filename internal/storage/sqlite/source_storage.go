package sqlite

import (
	"context"
	"database/sql"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
)

// SourceStorage implements interfaces.SourceStorage for SQLite
type SourceStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewSourceStorage creates a new SourceStorage instance
func NewSourceStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.SourceStorage {
	return &SourceStorage{
		db:     db,
		logger: logger,
	}
}

// CreateSource registers a new ingestion source. Names are unique; a
// duplicate is a validation error so callers can map it to a 400.
func (s *SourceStorage) CreateSource(ctx context.Context, source *models.Source) error {
	config := source.Config
	if config == nil {
		config = map[string]any{}
	}
	configJSON, err := encodeJSON(config)
	if err != nil {
		return common.DatabaseError(err, "marshal config for source %s", source.Name)
	}

	tagsJSON, err := encodeJSON(models.NormalizeTags(source.Tags))
	if err != nil {
		return common.DatabaseError(err, "marshal tags for source %s", source.Name)
	}

	var exists int
	err = s.db.DB().QueryRowContext(ctx,
		`SELECT 1 FROM sources WHERE name = ?`, source.Name).Scan(&exists)
	if err == nil {
		return common.ValidationError("source already exists: %s", source.Name)
	}
	if err != sql.ErrNoRows {
		return common.DatabaseError(err, "check source %s", source.Name)
	}

	if _, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO sources (name, kind, config_json, tags_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		source.Name, source.Kind, configJSON, tagsJSON, source.CreatedAt,
	); err != nil {
		return common.DatabaseError(err, "insert source %s", source.Name)
	}

	s.logger.Info().
		Str("name", source.Name).
		Str("kind", source.Kind).
		Msg("Source registered")

	return nil
}

// GetSource retrieves a source by name
func (s *SourceStorage) GetSource(ctx context.Context, name string) (*models.Source, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT name, kind, config_json, tags_json, created_at
		FROM sources WHERE name = ?`, name)

	source, err := scanSource(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundError("source not found: %s", name)
	}
	if err != nil {
		return nil, common.DatabaseError(err, "get source %s", name)
	}

	return source, nil
}

// ListSources retrieves all sources in name order
func (s *SourceStorage) ListSources(ctx context.Context) ([]*models.Source, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT name, kind, config_json, tags_json, created_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, common.DatabaseError(err, "list sources")
	}
	defer rows.Close()

	sources := make([]*models.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows.Scan)
		if err != nil {
			return nil, common.DatabaseError(err, "scan source")
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate sources")
	}

	return sources, nil
}

// DeleteSource removes a source by name
func (s *SourceStorage) DeleteSource(ctx context.Context, name string) error {
	result, err := s.db.DB().ExecContext(ctx, `DELETE FROM sources WHERE name = ?`, name)
	if err != nil {
		return common.DatabaseError(err, "delete source %s", name)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return common.DatabaseError(err, "delete source %s", name)
	}
	if affected == 0 {
		return common.NotFoundError("source not found: %s", name)
	}

	s.logger.Info().Str("name", name).Msg("Source deleted")
	return nil
}

func scanSource(scan func(...any) error) (*models.Source, error) {
	var source models.Source
	var configJSON, tagsJSON string

	if err := scan(&source.Name, &source.Kind, &configJSON, &tagsJSON, &source.CreatedAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(configJSON, &source.Config); err != nil {
		return nil, err
	}
	if err := decodeJSON(tagsJSON, &source.Tags); err != nil {
		return nil, err
	}

	return &source, nil
}
