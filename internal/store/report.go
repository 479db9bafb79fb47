package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/lazypower/persona/internal/memory"
)

// Report summarizes the event log: what happened, how readily the persona
// learns from conversation and how quickly it forgets.
type Report struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Summary     ReportSummary            `json:"summary"`
	Breakdown   map[memory.EventKind]int `json:"event_breakdown"`
	Learning    LearningPatterns         `json:"learning_patterns"`
	Forgetting  ForgettingPatterns       `json:"forgetting_patterns"`
}

type ReportSummary struct {
	Conversations int `json:"total_conversations"`
	MemoryEvents  int `json:"total_memory_events"`
	Sessions      int `json:"total_sessions"`
}

type LearningPatterns struct {
	MemoriesLearned           int     `json:"total_memories_learned"`
	ConversationsWithLearning int     `json:"conversations_with_learning"`
	LearningRate              float64 `json:"learning_rate"`
	MemoriesRecalled          int     `json:"total_memories_recalled"`
}

type ForgettingPatterns struct {
	DayAdvances        int `json:"day_advances"`
	InterferenceEvents int `json:"interference_events"`
	WeakenedMemories   int `json:"memories_weakened"`
	Consolidations     int `json:"consolidations"`
	// Mean drop in average memory strength per simulated day. Negative
	// when memories grew stronger overall.
	AvgStrengthLossPerDay float64 `json:"avg_strength_loss_per_day"`
}

// Report builds a Report from the turn and event logs. Learning counts
// only memories formed during a conversation turn: events tagged with
// turn 0 happened before the first exchange (birth seeds, imports).
func (db *DB) Report() (*Report, error) {
	r := &Report{GeneratedAt: time.Now().UTC()}

	counts, err := db.EventCounts()
	if err != nil {
		return nil, err
	}
	r.Breakdown = counts
	for _, n := range counts {
		r.Summary.MemoryEvents += n
	}

	err = db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM turns), (SELECT COUNT(*) FROM sessions)
	`).Scan(&r.Summary.Conversations, &r.Summary.Sessions)
	if err != nil {
		return nil, fmt.Errorf("report totals: %w", err)
	}

	err = db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT turn)
		FROM events
		WHERE kind = ? AND turn > 0
		  AND json_extract(detail, '$.context') IN ('conversation', 'self-reflection')
	`, string(memory.EventCreated)).Scan(&r.Learning.MemoriesLearned, &r.Learning.ConversationsWithLearning)
	if err != nil {
		return nil, fmt.Errorf("report learning: %w", err)
	}
	r.Learning.LearningRate = round3(float64(r.Learning.ConversationsWithLearning) /
		float64(max(1, r.Summary.Conversations)))

	err = db.QueryRow(`
		SELECT COALESCE(SUM(json_array_length(memory_ids)), 0)
		FROM events WHERE kind = ? AND turn > 0
	`, string(memory.EventRecall)).Scan(&r.Learning.MemoriesRecalled)
	if err != nil {
		return nil, fmt.Errorf("report recall: %w", err)
	}

	f := &r.Forgetting
	f.DayAdvances = counts[memory.EventDayAdvance]
	f.InterferenceEvents = counts[memory.EventInterference]
	f.Consolidations = counts[memory.EventConsolidation]
	err = db.QueryRow(`
		SELECT COALESCE(SUM(json_array_length(memory_ids)), 0)
		FROM events WHERE kind = ?
	`, string(memory.EventInterference)).Scan(&f.WeakenedMemories)
	if err != nil {
		return nil, fmt.Errorf("report interference: %w", err)
	}
	if f.AvgStrengthLossPerDay, err = db.strengthLossPerDay(); err != nil {
		return nil, err
	}
	return r, nil
}

// strengthLossPerDay compares the average strength logged by the first and
// last day advances.
func (db *DB) strengthLossPerDay() (float64, error) {
	var first, last sql.NullFloat64
	err := db.QueryRow(`
		SELECT
			(SELECT json_extract(detail, '$.avg_strength') FROM events WHERE kind = ?1 ORDER BY id ASC LIMIT 1),
			(SELECT json_extract(detail, '$.avg_strength') FROM events WHERE kind = ?1 ORDER BY id DESC LIMIT 1)
	`, string(memory.EventDayAdvance)).Scan(&first, &last)
	if err != nil {
		return 0, fmt.Errorf("report strength: %w", err)
	}
	var days int
	if err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE kind = ?`, string(memory.EventDayAdvance)).Scan(&days); err != nil {
		return 0, fmt.Errorf("report strength: %w", err)
	}
	if days < 2 || !first.Valid || !last.Valid {
		return 0, nil
	}
	return round3((first.Float64 - last.Float64) / float64(days-1)), nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
