package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: records with strength state",
		SQL: `
CREATE TABLE memories (
    id                      TEXT PRIMARY KEY,
    position                INTEGER NOT NULL,
    content                 TEXT NOT NULL,
    original_content        TEXT NOT NULL,
    context                 TEXT NOT NULL,
    fingerprint             TEXT NOT NULL,

    -- Fixed at creation
    emotion_weight          REAL NOT NULL,
    importance              REAL NOT NULL,
    persistence_factor      REAL NOT NULL,
    volatility_factor       REAL NOT NULL,
    interference_resistance REAL NOT NULL,

    -- Mutable strength components
    base_strength           REAL NOT NULL,
    retrieval_strength      REAL NOT NULL,
    consolidation_strength  REAL NOT NULL,

    -- Access tracking
    access_count            INTEGER NOT NULL DEFAULT 0,
    last_accessed_day       INTEGER NOT NULL DEFAULT 0,
    access_history          TEXT NOT NULL DEFAULT '[]',
    strength_history        TEXT NOT NULL DEFAULT '[]',

    created_at              INTEGER NOT NULL
);

CREATE INDEX idx_memories_position    ON memories(position);
CREATE INDEX idx_memories_context     ON memories(context);
CREATE INDEX idx_memories_fingerprint ON memories(fingerprint);
`,
	},
	{
		Version:     2,
		Description: "turns: conversation log",
		SQL: `
CREATE TABLE turns (
    id         INTEGER PRIMARY KEY,
    user_input TEXT NOT NULL,
    response   TEXT NOT NULL,
    day        INTEGER NOT NULL,
    mode       TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_turns_day ON turns(day);
`,
	},
	{
		Version:     3,
		Description: "persona_state: personality, emotion, clock and counters",
		SQL: `
CREATE TABLE persona_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     4,
		Description: "events: memory activity log",
		SQL: `
CREATE TABLE events (
    id         INTEGER PRIMARY KEY,
    kind       TEXT NOT NULL,
    day        INTEGER NOT NULL,
    memory_ids TEXT NOT NULL DEFAULT '[]',
    detail     TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX idx_events_kind    ON events(kind);
CREATE INDEX idx_events_created ON events(created_at DESC);
`,
	},
	{
		Version:     5,
		Description: "sessions: process lifetimes",
		SQL: `
CREATE TABLE sessions (
    id          INTEGER PRIMARY KEY,
    session_id  TEXT NOT NULL UNIQUE,
    persona     TEXT NOT NULL,
    surface     TEXT NOT NULL,
    started_at  INTEGER NOT NULL,
    ended_at    INTEGER,
    status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
    turn_count  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_sessions_started_at ON sessions(started_at DESC);
`,
	},
	{
		Version:     6,
		Description: "events: turn tag; memories and turns: nanosecond timestamps",
		SQL: `
ALTER TABLE events ADD COLUMN turn INTEGER NOT NULL DEFAULT 0;
CREATE INDEX idx_events_kind_turn ON events(kind, turn);

UPDATE memories SET created_at = created_at * 1000000;
UPDATE turns    SET created_at = created_at * 1000000;
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
