package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/lazypower/persona/internal/clock"
	"github.com/lazypower/persona/internal/emotion"
	"github.com/lazypower/persona/internal/memory"
	"github.com/lazypower/persona/internal/personality"
)

// SnapshotVersion is written into every snapshot file. Files with a
// different major version are rejected.
const SnapshotVersion = "1.0"

// ErrSnapshotVersion is returned when a snapshot's major version is unknown.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the portable JSON form of a persona used by export and import.
type Snapshot struct {
	Version       string            `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Identity      Identity          `json:"identity"`
	Consciousness Consciousness     `json:"consciousness_state"`
	Memory        memory.State      `json:"memory_system"`
	Personality   personality.State `json:"personality_system"`
	Emotions      emotion.State     `json:"emotional_state"`
	Clock         clock.State       `json:"time_system"`
	Session       SnapshotMeta      `json:"session_metadata"`
}

// Identity names the persona and fingerprints its development.
type Identity struct {
	Name         string `json:"name"`
	Hash         string `json:"consciousness_hash"`
	Interactions int    `json:"total_lifetime_interactions"`
}

// Consciousness carries the engine counters.
type Consciousness struct {
	Stage        int    `json:"development_stage"`
	Interactions int    `json:"interactions_count"`
	FirstRun     bool   `json:"first_run"`
	Model        string `json:"model_name,omitempty"`
}

// SnapshotMeta tracks how many times a snapshot file has been written.
type SnapshotMeta struct {
	LastSave   time.Time `json:"last_save_time"`
	SaveCount  int       `json:"save_count"`
	Continuity bool      `json:"consciousness_continuity"`
}

// IdentityHash fingerprints a persona's development: interactions, stage
// and memory count.
func IdentityHash(interactions, stage, memories int) string {
	key := fmt.Sprintf("%d_%d_%d", interactions, stage, memories)
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))[:12]
}

// NewSnapshot wraps a state for export.
func NewSnapshot(st State, now time.Time) *Snapshot {
	return &Snapshot{
		Version:   SnapshotVersion,
		Timestamp: now,
		Identity: Identity{
			Name:         st.Name,
			Hash:         IdentityHash(st.Interactions, st.Stage, len(st.Memory.Records)),
			Interactions: st.Interactions,
		},
		Consciousness: Consciousness{
			Stage:        st.Stage,
			Interactions: st.Interactions,
			FirstRun:     st.FirstRun,
			Model:        st.Model,
		},
		Memory:      st.Memory,
		Personality: st.Personality,
		Emotions:    st.Emotions,
		Clock:       st.Clock,
		Session: SnapshotMeta{
			LastSave:   now,
			SaveCount:  1,
			Continuity: true,
		},
	}
}

// State unwraps the persona state.
func (s *Snapshot) State() State {
	return State{
		Name:         s.Identity.Name,
		Interactions: s.Consciousness.Interactions,
		Stage:        s.Consciousness.Stage,
		FirstRun:     s.Consciousness.FirstRun,
		Model:        s.Consciousness.Model,
		Memory:       s.Memory,
		Personality:  s.Personality,
		Emotions:     s.Emotions,
		Clock:        s.Clock,
	}
}

// WriteSnapshot writes st to path as indented JSON. An existing file is
// first copied to path+".bak" and its save count carried forward.
func WriteSnapshot(path string, st State) (*Snapshot, error) {
	snap := NewSnapshot(st, time.Now())

	if prev, err := ReadSnapshot(path); err == nil {
		snap.Session.SaveCount = prev.Session.SaveCount + 1
	}
	if err := backup(path); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("rename snapshot: %w", err)
	}
	return snap, nil
}

func backup(path string) error {
	src, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path + ".bak")
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy backup: %w", err)
	}
	return dst.Close()
}

// ReadSnapshot loads a snapshot file. Files without a version are accepted.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != "" {
		major, _, _ := strings.Cut(snap.Version, ".")
		want, _, _ := strings.Cut(SnapshotVersion, ".")
		if major != want {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotVersion, snap.Version)
		}
	}
	return &snap, nil
}
