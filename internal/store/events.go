package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/persona/internal/memory"
)

// AddEvents appends memory activity events in a single transaction.
func (db *DB) AddEvents(events []memory.Event) error {
	if len(events) == 0 {
		return nil
	}
	return db.inTx("add events", func(tx *sql.Tx) error {
		return insertEvents(tx, events)
	})
}

func insertEvents(tx *sql.Tx, events []memory.Event) error {
	stmt, err := tx.Prepare(`
		INSERT INTO events (kind, day, turn, memory_ids, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare add event: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		ids, err := json.Marshal(nonNil(e.RecordIDs))
		if err != nil {
			return fmt.Errorf("marshal event ids: %w", err)
		}
		var detail *string
		if len(e.Detail) > 0 {
			b, err := json.Marshal(e.Detail)
			if err != nil {
				return fmt.Errorf("marshal event detail: %w", err)
			}
			s := string(b)
			detail = &s
		}
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(string(e.Kind), e.Day, e.Turn, string(ids), detail, at.UnixMilli()); err != nil {
			return fmt.Errorf("add event: %w", err)
		}
	}
	return nil
}

// GetRecentEvents returns the most recent events, newest first. An empty
// kind matches every kind.
func (db *DB) GetRecentEvents(kind memory.EventKind, limit int) ([]memory.Event, error) {
	rows, err := db.Query(`
		SELECT kind, day, turn, memory_ids, detail, created_at
		FROM events WHERE (? = '' OR kind = ?)
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("get recent events: %w", err)
	}
	defer rows.Close()

	var events []memory.Event
	for rows.Next() {
		var (
			e       memory.Event
			k, ids  string
			detail  *string
			created int64
		)
		if err := rows.Scan(&k, &e.Day, &e.Turn, &ids, &detail, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = memory.EventKind(k)
		e.At = time.UnixMilli(created)
		if err := json.Unmarshal([]byte(ids), &e.RecordIDs); err != nil {
			return nil, fmt.Errorf("decode event ids: %w", err)
		}
		if detail != nil {
			if err := json.Unmarshal([]byte(*detail), &e.Detail); err != nil {
				return nil, fmt.Errorf("decode event detail: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EventCounts returns how many events of each kind have been logged.
func (db *DB) EventCounts() (map[memory.EventKind]int, error) {
	rows, err := db.Query(`SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("event counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[memory.EventKind]int)
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[memory.EventKind(k)] = n
	}
	return counts, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
