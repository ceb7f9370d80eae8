package sqlite

import (
	"github.com/ternarybob/opsbrain/internal/common"
)

const schemaSQL = `
-- Canonical events projected from the append-only log.
-- The log is the system of record; every row here can be rebuilt from it.
CREATE TABLE IF NOT EXISTS events (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	schema_version TEXT NOT NULL,
	ts TEXT NOT NULL,
	type TEXT NOT NULL,
	tags_json TEXT NOT NULL,
	text TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	source_kind TEXT NOT NULL,
	source_locator TEXT NOT NULL,
	source_meta_json TEXT NOT NULL,
	hash_algo TEXT NOT NULL,
	hash_value TEXT NOT NULL,
	dedupe_key TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);

-- Source material references per event
CREATE TABLE IF NOT EXISTS refs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	ref_kind TEXT NOT NULL,
	uri TEXT NOT NULL,
	span_json TEXT,
	digest_algo TEXT,
	digest_value TEXT
);

CREATE INDEX IF NOT EXISTS idx_refs_event_id ON refs(event_id);
CREATE INDEX IF NOT EXISTS idx_refs_uri ON refs(uri);

-- First-writer-wins dedupe mapping
CREATE TABLE IF NOT EXISTS dedupe (
	dedupe_key TEXT PRIMARY KEY,
	event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	first_seen_ts TEXT NOT NULL
);

-- External-content FTS index over event text. unicode61 with full
-- diacritic removal keeps accented and CJK text searchable.
CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
	text,
	content='events',
	content_rowid='rowid',
	tokenize='unicode61 remove_diacritics 2'
);

-- Triggers to keep the FTS index in sync. External-content tables take
-- the special 'delete' command form instead of DELETE FROM.
CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
	INSERT INTO events_fts(rowid, text) VALUES (new.rowid, new.text);
END;

CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
	INSERT INTO events_fts(events_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
END;

CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
	INSERT INTO events_fts(events_fts, rowid, text) VALUES ('delete', old.rowid, old.text);
	INSERT INTO events_fts(rowid, text) VALUES (new.rowid, new.text);
END;

-- Schema bookkeeping
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

-- Registered ingestion sources
CREATE TABLE IF NOT EXISTS sources (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	config_json TEXT NOT NULL,
	tags_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);

-- Saved queries
CREATE TABLE IF NOT EXISTS views (
	name TEXT PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	query_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);

-- Job definitions and run history
CREATE TABLE IF NOT EXISTS jobs (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	config_json TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_runs (
	id TEXT PRIMARY KEY,
	job_name TEXT NOT NULL REFERENCES jobs(name) ON DELETE CASCADE,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	status TEXT NOT NULL,
	output_json TEXT,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job_name, started_at);
`

// InitSchema initializes the database schema
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}

	// Run migrations for schema evolution
	if err := s.runMigrations(); err != nil {
		return err
	}

	// Record the schema version the index is now at. Migrations above
	// bring older files up to date, so an upsert is correct here.
	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		common.SchemaVersion,
	); err != nil {
		return err
	}

	s.logger.Debug().Msg("Database schema initialized")
	return nil
}

// runMigrations checks for and applies schema migrations for existing
// databases. Indexes created before dedupe keys existed lack the
// events.dedupe_key column.
func (s *SQLiteDB) runMigrations() error {
	rows, err := s.db.Query(`PRAGMA table_info(events)`)
	if err != nil {
		return err
	}
	defer rows.Close()

	hasDedupeKey := false
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull, dfltValue, pk interface{}
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == "dedupe_key" {
			hasDedupeKey = true
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if !hasDedupeKey {
		s.logger.Info().Msg("Running migration: adding dedupe_key column to events")
		if _, err := s.db.Exec(`ALTER TABLE events ADD COLUMN dedupe_key TEXT`); err != nil {
			return err
		}
	}

	// The index lives outside schemaSQL so it can be created after the
	// column migration on pre-dedupe databases.
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_dedupe_key ON events(dedupe_key)`); err != nil {
		return err
	}

	return nil
}
