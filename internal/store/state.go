package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/persona/internal/clock"
	"github.com/lazypower/persona/internal/emotion"
	"github.com/lazypower/persona/internal/memory"
	"github.com/lazypower/persona/internal/personality"
)

// State is everything needed to bring a persona back exactly as it was.
type State struct {
	Name         string            `json:"name"`
	Interactions int               `json:"interactions_count"`
	Stage        int               `json:"development_stage"`
	FirstRun     bool              `json:"first_run"`
	Model        string            `json:"model_name,omitempty"`
	Memory       memory.State      `json:"memory_system"`
	Personality  personality.State `json:"personality_system"`
	Emotions     emotion.State     `json:"emotional_state"`
	Clock        clock.State       `json:"time_system"`
}

type identityRow struct {
	Name         string `json:"name"`
	Interactions int    `json:"interactions_count"`
	Stage        int    `json:"development_stage"`
	FirstRun     bool   `json:"first_run"`
	Model        string `json:"model_name,omitempty"`
	Days         int    `json:"days"`
	SleepCycles  int    `json:"sleep_cycles"`
}

// SaveState writes the full persona state in one transaction. Memories are
// rewritten wholesale since every day changes their strengths. Turns are
// append-only: when the stored log is a prefix of st's only the new turns
// are inserted, otherwise the log is rewritten.
func (db *DB) SaveState(st State) error {
	return db.saveState("save state", st, false)
}

// ReplaceState writes st over whatever persona is stored, rewriting the
// turn log unconditionally. Used when a snapshot is imported.
func (db *DB) ReplaceState(st State) error {
	return db.saveState("replace state", st, true)
}

func (db *DB) saveState(what string, st State, replace bool) error {
	now := time.Now().UnixMilli()

	return db.inTx(what, func(tx *sql.Tx) error {
		if err := saveMemories(tx, st.Memory.Records); err != nil {
			return err
		}
		if replace {
			if _, err := tx.Exec(`DELETE FROM turns`); err != nil {
				return fmt.Errorf("clear turns: %w", err)
			}
		}
		if err := saveTurns(tx, st.Memory.Turns); err != nil {
			return err
		}
		return saveKeys(tx, st, now)
	})
}

// saveKeys upserts the persona_state rows.
func saveKeys(tx *sql.Tx, st State, now int64) error {
	values := map[string]any{
		"identity": identityRow{
			Name:         st.Name,
			Interactions: st.Interactions,
			Stage:        st.Stage,
			FirstRun:     st.FirstRun,
			Model:        st.Model,
			Days:         st.Memory.Day,
			SleepCycles:  st.Memory.SleepCycles,
		},
		"personality": st.Personality,
		"emotions":    st.Emotions,
		"clock":       st.Clock,
	}
	for key, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO persona_state (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, string(b), now); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

func saveMemories(tx *sql.Tx, records []memory.Record) error {
	if _, err := tx.Exec(`DELETE FROM memories`); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO memories (
			id, position, content, original_content, context, fingerprint,
			emotion_weight, importance, persistence_factor, volatility_factor, interference_resistance,
			base_strength, retrieval_strength, consolidation_strength,
			access_count, last_accessed_day, access_history, strength_history, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare memory insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		access, err := json.Marshal(nonNil(r.AccessHistory))
		if err != nil {
			return fmt.Errorf("marshal access history: %w", err)
		}
		history, err := json.Marshal(nonNil(r.StrengthHistory))
		if err != nil {
			return fmt.Errorf("marshal strength history: %w", err)
		}
		if _, err := stmt.Exec(
			r.ID, i, r.Content, r.OriginalContent, r.Context, r.Fingerprint,
			r.EmotionWeight, r.Importance, r.PersistenceFactor, r.VolatilityFactor, r.InterferenceResistance,
			r.BaseStrength, r.RetrievalStrength, r.ConsolidationStrength,
			r.AccessCount, r.LastAccessedDay, string(access), string(history), r.CreatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("insert memory %s: %w", r.ID, err)
		}
	}
	return nil
}

func saveTurns(tx *sql.Tx, turns []memory.Turn) error {
	stored, err := storedPrefix(tx, turns)
	if err != nil {
		return err
	}
	if stored < 0 {
		if _, err := tx.Exec(`DELETE FROM turns`); err != nil {
			return fmt.Errorf("clear turns: %w", err)
		}
		stored = 0
	}
	for _, t := range turns[stored:] {
		if _, err := tx.Exec(`
			INSERT INTO turns (user_input, response, day, mode, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, t.Input, t.Response, t.Day, t.Mode, t.At.UnixNano()); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}
	return nil
}

// storedPrefix returns how many leading turns are already stored, or -1 if
// the stored log is not a prefix of turns.
func storedPrefix(tx *sql.Tx, turns []memory.Turn) (int, error) {
	rows, err := tx.Query(`SELECT user_input, response, day, mode, created_at FROM turns ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("read stored turns: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			t       memory.Turn
			created int64
		)
		if err := rows.Scan(&t.Input, &t.Response, &t.Day, &t.Mode, &created); err != nil {
			return 0, fmt.Errorf("scan stored turn: %w", err)
		}
		if n >= len(turns) {
			return -1, nil
		}
		want := turns[n]
		if t.Input != want.Input || t.Response != want.Response || t.Day != want.Day ||
			t.Mode != want.Mode || created != want.At.UnixNano() {
			return -1, nil
		}
		n++
	}
	return n, rows.Err()
}

// LoadState reads the persona state. Returns nil, nil if nothing has been
// saved yet.
func (db *DB) LoadState() (*State, error) {
	raw := make(map[string]string)
	rows, err := db.Query(`SELECT key, value FROM persona_state`)
	if err != nil {
		return nil, fmt.Errorf("load persona state: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan persona state: %w", err)
		}
		raw[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, ok := raw["identity"]; !ok {
		return nil, nil
	}

	var id identityRow
	st := &State{}
	targets := map[string]any{
		"identity":    &id,
		"personality": &st.Personality,
		"emotions":    &st.Emotions,
		"clock":       &st.Clock,
	}
	for key, dst := range targets {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(v), dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	st.Name = id.Name
	st.Interactions = id.Interactions
	st.Stage = id.Stage
	st.FirstRun = id.FirstRun
	st.Model = id.Model
	st.Memory.Day = id.Days
	st.Memory.SleepCycles = id.SleepCycles

	if st.Memory.Records, err = db.loadMemories(); err != nil {
		return nil, err
	}
	if st.Memory.Turns, err = db.GetTurns(0); err != nil {
		return nil, err
	}
	return st, nil
}

func (db *DB) loadMemories() ([]memory.Record, error) {
	rows, err := db.Query(`
		SELECT id, content, original_content, context, fingerprint,
			emotion_weight, importance, persistence_factor, volatility_factor, interference_resistance,
			base_strength, retrieval_strength, consolidation_strength,
			access_count, last_accessed_day, access_history, strength_history, created_at
		FROM memories ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	defer rows.Close()

	records := []memory.Record{}
	for rows.Next() {
		var (
			r               memory.Record
			access, history string
			created         int64
		)
		if err := rows.Scan(
			&r.ID, &r.Content, &r.OriginalContent, &r.Context, &r.Fingerprint,
			&r.EmotionWeight, &r.Importance, &r.PersistenceFactor, &r.VolatilityFactor, &r.InterferenceResistance,
			&r.BaseStrength, &r.RetrievalStrength, &r.ConsolidationStrength,
			&r.AccessCount, &r.LastAccessedDay, &access, &history, &created,
		); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if err := json.Unmarshal([]byte(access), &r.AccessHistory); err != nil {
			return nil, fmt.Errorf("decode access history: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &r.StrengthHistory); err != nil {
			return nil, fmt.Errorf("decode strength history: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetTurns returns the conversation log in order. limit <= 0 returns every
// turn; otherwise the most recent limit turns.
func (db *DB) GetTurns(limit int) ([]memory.Turn, error) {
	query := `SELECT user_input, response, day, mode, created_at FROM turns ORDER BY id`
	args := []any{}
	if limit > 0 {
		query = `SELECT * FROM (
			SELECT user_input, response, day, mode, created_at, id FROM turns ORDER BY id DESC LIMIT ?
		) ORDER BY id`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()

	turns := []memory.Turn{}
	for rows.Next() {
		var (
			t       memory.Turn
			created int64
		)
		dest := []any{&t.Input, &t.Response, &t.Day, &t.Mode, &created}
		if limit > 0 {
			var id int64
			dest = append(dest, &id)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.At = time.Unix(0, created).UTC()
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
