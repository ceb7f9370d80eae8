package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/opsbrain/internal/common"
	"github.com/ternarybob/opsbrain/internal/interfaces"
	"github.com/ternarybob/opsbrain/internal/models"
)

const eventColumns = `id, schema_version, ts, type, tags_json, text, payload_json,
	source_kind, source_locator, source_meta_json, hash_algo, hash_value, dedupe_key, created_at`

// EventStorage implements interfaces.EventStorage for SQLite
type EventStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewEventStorage creates a new EventStorage instance
func NewEventStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.EventStorage {
	return &EventStorage{
		db:     db,
		logger: logger,
	}
}

// InsertEvent stores the event row, its refs and, when present, its dedupe
// mapping in one transaction. The caller has already appended the event to
// the canonical log; a failure here leaves the log ahead of the index,
// which index_rebuild reconciles.
func (s *EventStorage) InsertEvent(ctx context.Context, event *models.Event) error {
	tagsJSON, err := encodeJSON(models.NormalizeTags(event.Tags))
	if err != nil {
		return common.DatabaseError(err, "marshal tags for event %s", event.ID)
	}

	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := encodeJSON(payload)
	if err != nil {
		return common.DatabaseError(err, "marshal payload for event %s", event.ID)
	}

	meta := event.Source.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := encodeJSON(meta)
	if err != nil {
		return common.DatabaseError(err, "marshal source meta for event %s", event.ID)
	}

	var dedupeKey sql.NullString
	if event.DedupeKey != nil && *event.DedupeKey != "" {
		dedupeKey = sql.NullString{String: *event.DedupeKey, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return common.DatabaseError(err, "begin insert for event %s", event.ID)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.SchemaVersion,
		event.TS,
		event.Type,
		tagsJSON,
		event.Text,
		payloadJSON,
		event.Source.Kind,
		event.Source.Locator,
		metaJSON,
		event.Hash.Algo,
		event.Hash.Value,
		dedupeKey,
		event.CreatedAt,
	); err != nil {
		return common.DatabaseError(err, "insert event %s", event.ID)
	}

	for _, ref := range event.Refs {
		var spanJSON sql.NullString
		if ref.Span != nil {
			encoded, err := encodeJSON(ref.Span)
			if err != nil {
				return common.DatabaseError(err, "marshal ref span for event %s", event.ID)
			}
			spanJSON = sql.NullString{String: encoded, Valid: true}
		}

		var digestAlgo, digestValue sql.NullString
		if ref.Digest != nil {
			digestAlgo = sql.NullString{String: ref.Digest.Algo, Valid: true}
			digestValue = sql.NullString{String: ref.Digest.Value, Valid: true}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO refs (event_id, ref_kind, uri, span_json, digest_algo, digest_value)
			VALUES (?, ?, ?, ?, ?, ?)`,
			event.ID, ref.Kind, ref.URI, spanJSON, digestAlgo, digestValue,
		); err != nil {
			return common.DatabaseError(err, "insert ref for event %s", event.ID)
		}
	}

	if dedupeKey.Valid {
		// OR IGNORE keeps the first writer when a rebuild replays events
		// that share a key with an earlier line.
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO dedupe (dedupe_key, event_id, first_seen_ts)
			VALUES (?, ?, ?)`,
			dedupeKey.String, event.ID, event.TS,
		); err != nil {
			return common.DatabaseError(err, "insert dedupe mapping for event %s", event.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.DatabaseError(err, "commit insert for event %s", event.ID)
	}

	return nil
}

// GetEvent retrieves a full canonical event by id
func (s *EventStorage) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := s.db.DB().QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)

	event, err := s.scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundError("event not found: %s", id)
	}
	if err != nil {
		return nil, common.DatabaseError(err, "get event %s", id)
	}

	refs, err := s.loadRefs(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Refs = refs

	return event, nil
}

// EventExists reports whether an event id is already indexed
func (s *EventStorage) EventExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT 1 FROM events WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, common.DatabaseError(err, "check event %s", id)
	}
	return true, nil
}

// LookupDedupe resolves a dedupe key to the event id that first claimed it
func (s *EventStorage) LookupDedupe(ctx context.Context, dedupeKey string) (string, bool, error) {
	var eventID string
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT event_id FROM dedupe WHERE dedupe_key = ?`, dedupeKey).Scan(&eventID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, common.DatabaseError(err, "lookup dedupe key")
	}
	return eventID, true, nil
}

// QuerySummaries runs a filtered query returning summary rows with the
// event text trimmed to snippetLen characters.
func (s *EventStorage) QuerySummaries(ctx context.Context, filters *models.EventFilters, fts bool, snippetLen int) ([]*models.EventSummary, error) {
	where, whereArgs := buildEventWhere(filters, fts)

	query := `SELECT events.id, events.ts, events.type, events.tags_json, substr(events.text, 1, ?) FROM events` +
		ftsJoin(filters, fts) + where + orderClause(filters) + ` LIMIT ?`

	args := make([]any, 0, len(whereArgs)+2)
	args = append(args, snippetLen)
	args = append(args, whereArgs...)
	args = append(args, queryLimit(filters))

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.DatabaseError(err, "query events")
	}
	defer rows.Close()

	summaries := make([]*models.EventSummary, 0)
	for rows.Next() {
		var summary models.EventSummary
		var tagsJSON string
		if err := rows.Scan(&summary.ID, &summary.TS, &summary.Type, &tagsJSON, &summary.Snippet); err != nil {
			return nil, common.DatabaseError(err, "scan event summary")
		}
		if err := decodeJSON(tagsJSON, &summary.Tags); err != nil {
			return nil, common.DatabaseError(err, "unmarshal tags for event %s", summary.ID)
		}
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate event summaries")
	}

	for _, summary := range summaries {
		refs, err := s.loadRefs(ctx, summary.ID)
		if err != nil {
			return nil, err
		}
		summary.Refs = refs
	}

	return summaries, nil
}

// QueryFull runs a filtered query returning complete canonical events
func (s *EventStorage) QueryFull(ctx context.Context, filters *models.EventFilters, fts bool) ([]*models.Event, error) {
	where, whereArgs := buildEventWhere(filters, fts)

	query := `SELECT ` + qualifyEventColumns() + ` FROM events` +
		ftsJoin(filters, fts) + where + orderClause(filters) + ` LIMIT ?`

	args := append(whereArgs, queryLimit(filters))

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.DatabaseError(err, "query events")
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event, err := s.scanEvent(rows.Scan)
		if err != nil {
			return nil, common.DatabaseError(err, "scan event")
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate events")
	}

	for _, event := range events {
		refs, err := s.loadRefs(ctx, event.ID)
		if err != nil {
			return nil, err
		}
		event.Refs = refs
	}

	return events, nil
}

// CountEvents returns the number of indexed events
func (s *EventStorage) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, common.DatabaseError(err, "count events")
	}
	return count, nil
}

// CountDedupe returns the number of dedupe mappings
func (s *EventStorage) CountDedupe(ctx context.Context) (int, error) {
	var count int
	if err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM dedupe`).Scan(&count); err != nil {
		return 0, common.DatabaseError(err, "count dedupe mappings")
	}
	return count, nil
}

// Wipe clears all indexed events ahead of a from-scratch rebuild. The
// canonical log is untouched.
func (s *EventStorage) Wipe(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return common.DatabaseError(err, "begin wipe")
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM refs`,
		`DELETE FROM dedupe`,
		`DELETE FROM events`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return common.DatabaseError(err, "wipe index")
		}
	}

	// Resync the external-content FTS table with the now-empty source.
	if _, err := tx.ExecContext(ctx, `INSERT INTO events_fts(events_fts) VALUES ('rebuild')`); err != nil {
		return common.DatabaseError(err, "rebuild FTS index")
	}

	if err := tx.Commit(); err != nil {
		return common.DatabaseError(err, "commit wipe")
	}

	s.logger.Info().Msg("Event index wiped")
	return nil
}

// RebuildFTS resyncs the external-content FTS table from the events table.
func (s *EventStorage) RebuildFTS(ctx context.Context) error {
	if _, err := s.db.DB().ExecContext(ctx, `INSERT INTO events_fts(events_fts) VALUES ('rebuild')`); err != nil {
		return common.DatabaseError(err, "rebuild FTS index")
	}
	return nil
}

// scanEvent reads one event row. Refs are loaded separately.
func (s *EventStorage) scanEvent(scan func(...any) error) (*models.Event, error) {
	var event models.Event
	var tagsJSON, payloadJSON, metaJSON string
	var dedupeKey sql.NullString

	if err := scan(
		&event.ID,
		&event.SchemaVersion,
		&event.TS,
		&event.Type,
		&tagsJSON,
		&event.Text,
		&payloadJSON,
		&event.Source.Kind,
		&event.Source.Locator,
		&metaJSON,
		&event.Hash.Algo,
		&event.Hash.Value,
		&dedupeKey,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := decodeJSON(tagsJSON, &event.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := decodeJSON(payloadJSON, &event.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := decodeJSON(metaJSON, &event.Source.Meta); err != nil {
		return nil, fmt.Errorf("unmarshal source meta: %w", err)
	}

	if dedupeKey.Valid {
		key := dedupeKey.String
		event.DedupeKey = &key
	}

	return &event, nil
}

// loadRefs fetches the refs for one event in insertion order
func (s *EventStorage) loadRefs(ctx context.Context, eventID string) ([]models.Ref, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT ref_kind, uri, span_json, digest_algo, digest_value
		FROM refs WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, common.DatabaseError(err, "load refs for event %s", eventID)
	}
	defer rows.Close()

	refs := make([]models.Ref, 0)
	for rows.Next() {
		var ref models.Ref
		var spanJSON, digestAlgo, digestValue sql.NullString
		if err := rows.Scan(&ref.Kind, &ref.URI, &spanJSON, &digestAlgo, &digestValue); err != nil {
			return nil, common.DatabaseError(err, "scan ref for event %s", eventID)
		}
		if spanJSON.Valid && spanJSON.String != "" {
			if err := decodeJSON(spanJSON.String, &ref.Span); err != nil {
				return nil, common.DatabaseError(err, "unmarshal ref span for event %s", eventID)
			}
		}
		if digestAlgo.Valid && digestValue.Valid {
			ref.Digest = &models.Digest{Algo: digestAlgo.String, Value: digestValue.String}
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, common.DatabaseError(err, "iterate refs for event %s", eventID)
	}

	return refs, nil
}

// buildEventWhere translates filters into a WHERE clause. With fts=false a
// text query degrades to a substring scan, which the CLI uses offline.
func buildEventWhere(filters *models.EventFilters, fts bool) (string, []any) {
	var conds []string
	var args []any

	if filters.Q != "" {
		if fts {
			conds = append(conds, "events_fts MATCH ?")
			args = append(args, ftsPhrase(filters.Q))
		} else {
			conds = append(conds, "events.text LIKE ?")
			args = append(args, "%"+filters.Q+"%")
		}
	}

	if len(filters.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filters.Types)), ",")
		conds = append(conds, fmt.Sprintf("events.type IN (%s)", placeholders))
		for _, t := range filters.Types {
			args = append(args, t)
		}
	}

	// Tags are OR-combined: an event matches when it carries any of the
	// requested tags. tags_json is stored without HTML escaping, so the
	// quoted-tag pattern matches the raw tag text.
	if len(filters.Tags) > 0 {
		tagConds := make([]string, 0, len(filters.Tags))
		for _, tag := range filters.Tags {
			tagConds = append(tagConds, "events.tags_json LIKE ?")
			args = append(args, `%"`+tag+`"%`)
		}
		conds = append(conds, "("+strings.Join(tagConds, " OR ")+")")
	}

	// Both time bounds are inclusive. Timestamps compare lexicographically,
	// which matches chronological order within a fixed UTC offset.
	if filters.After != "" {
		conds = append(conds, "events.ts >= ?")
		args = append(args, filters.After)
	}
	if filters.Before != "" {
		conds = append(conds, "events.ts <= ?")
		args = append(args, filters.Before)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ftsJoin returns the FTS join clause when the query goes through the index
func ftsJoin(filters *models.EventFilters, fts bool) string {
	if fts && filters.Q != "" {
		return ` JOIN events_fts ON events_fts.rowid = events.rowid`
	}
	return ""
}

// ftsPhrase quotes the query as a single FTS5 phrase so user input cannot
// inject match syntax.
func ftsPhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

// orderClause orders by timestamp with event id as tiebreaker. ULIDs sort
// by creation time, so ties stay in insertion order.
func orderClause(filters *models.EventFilters) string {
	dir := "ASC"
	if filters.Order == models.OrderDesc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY events.ts %s, events.id %s", dir, dir)
}

func queryLimit(filters *models.EventFilters) int {
	if filters.Limit > 0 {
		return filters.Limit
	}
	return models.DefaultQueryLimit
}
