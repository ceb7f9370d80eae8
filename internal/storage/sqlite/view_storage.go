package sqlite

import (
	"context"
	"database/sql"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
)

// ViewStorage implements interfaces.ViewStorage for SQLite
type ViewStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewViewStorage creates a new ViewStorage instance
func NewViewStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.ViewStorage {
	return &ViewStorage{
		db:     db,
		logger: logger,
	}
}

// CreateView saves a view, replacing any existing view with the same name
func (s *ViewStorage) CreateView(ctx context.Context, view *models.View) error {
	queryJSON, err := encodeJSON(view.Query)
	if err != nil {
		return common.DatabaseError(err, "marshal query for view %s", view.Name)
	}

	if _, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO views (name, description, query_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			query_json = excluded.query_json`,
		view.Name, view.Description, queryJSON, view.CreatedAt,
	); err != nil {
		return common.DatabaseError(err, "save view %s", view.Name)
	}

	s.logger.Info().Str("name", view.Name).Msg("View saved")
	return nil
}

// EnsureView inserts the view only when the name is free, so user edits to
// built-in views survive daemon restarts.
func (s *ViewStorage) EnsureView(ctx context.Context, view *models.View) error {
	queryJSON, err := encodeJSON(view.Query)
	if err != nil {
		return common.DatabaseError(err, "marshal query for view %s", view.Name)
	}

	if _, err := s.db.DB().ExecContext(ctx, `
		INSERT OR IGNORE INTO views (name, description, query_json, created_at)
		VALUES (?, ?, ?, ?)`,
		view.Name, view.Description, queryJSON, view.CreatedAt,
	); err != nil {
		return common.DatabaseError(err, "ensure view %s", view.Name)
	}

	return nil
}

// GetView retrieves a view by name
func (s *ViewStorage) GetView(ctx context.Context, name string) (*models.View, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT name, description, query_json, created_at
		FROM views WHERE name = ?`, name)

	view, err := scanView(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundError("view not found: %s", name)
	}
	if err != nil {
		return nil, common.DatabaseError(err, "get view %s", name)
	}

	return view, nil
}

// ListViews retrieves all views in name order
func (s *ViewStorage) ListViews(ctx context.Context) ([]*models.View, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT name, description, query_json, created_at
		FROM views ORDER BY name`)
	if err != nil {
		return nil, common.DatabaseError(err, "list views")
	}
	defer rows.Close()

	views := make([]*models.View, 0)
	for rows.Next() {
		view, err := scanView(rows.Scan)
		if err != nil {
			return nil, common.DatabaseError(err, "scan view")
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate views")
	}

	return views, nil
}

// DeleteView removes a view by name
func (s *ViewStorage) DeleteView(ctx context.Context, name string) error {
	result, err := s.db.DB().ExecContext(ctx, `DELETE FROM views WHERE name = ?`, name)
	if err != nil {
		return common.DatabaseError(err, "delete view %s", name)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return common.DatabaseError(err, "delete view %s", name)
	}
	if affected == 0 {
		return common.NotFoundError("view not found: %s", name)
	}

	s.logger.Info().Str("name", name).Msg("View deleted")
	return nil
}

func scanView(scan func(...any) error) (*models.View, error) {
	var view models.View
	var queryJSON string

	if err := scan(&view.Name, &view.Description, &queryJSON, &view.CreatedAt); err != nil {
		return nil, err
	}

	if err := decodeJSON(queryJSON, &view.Query); err != nil {
		return nil, err
	}

	return &view, nil
}
