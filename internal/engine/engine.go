// Package engine wires memory, personality, emotion and time awareness into
// a persona that converses through an LLM and persists to SQLite.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lazypower/persona/internal/clock"
	"github.com/lazypower/persona/internal/emotion"
	"github.com/lazypower/persona/internal/llm"
	"github.com/lazypower/persona/internal/memory"
	"github.com/lazypower/persona/internal/metrics"
	"github.com/lazypower/persona/internal/personality"
	"github.com/lazypower/persona/internal/store"
)

// Engine orchestrates conversation, learning, day advance and persistence.
// DB and Metrics may be nil.
type Engine struct {
	Memory      *memory.Store
	Personality *personality.Personality
	Emotions    *emotion.Monitor
	Clock       *clock.Awareness
	LLM         llm.Client
	DB          *store.DB
	Metrics     *metrics.Metrics
	Log         *slog.Logger

	// mu serializes the multi-step operations and guards the counters below.
	mu            sync.Mutex
	model         string
	interactions  int
	stage         int
	firstRun      bool
	autosaveEvery int
	unsaved       int
	session       string
	src           *rand.Rand

	pendingMu sync.Mutex
	pending   []memory.Event

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Options configures a new Engine. Zero values fall back to defaults.
type Options struct {
	Name          string
	Model         string
	AutosaveEvery int
	SleepHour     int
	WakeHour      int
	// Seed makes every random draw reproducible. 0 seeds from the runtime.
	Seed    uint64
	Now     func() time.Time
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// New creates an engine. If db holds a saved persona it is restored,
// otherwise a fresh persona is born.
func New(db *store.DB, client llm.Client, opts Options) (*Engine, error) {
	if opts.Name == "" {
		opts.Name = "Akira"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.SleepHour == 0 && opts.WakeHour == 0 {
		opts.SleepHour, opts.WakeHour = 22, 6
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	// Each component draws under its own lock, so each gets its own stream.
	stream := func(n uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, n)) }

	e := &Engine{
		Personality:   personality.New(opts.Name, stream(2)),
		Emotions:      emotion.New(stream(3)),
		Clock:         clock.New(opts.Now, opts.SleepHour, opts.WakeHour),
		LLM:           client,
		DB:            db,
		Metrics:       opts.Metrics,
		Log:           opts.Log,
		model:         opts.Model,
		firstRun:      true,
		autosaveEvery: opts.AutosaveEvery,
		src:           stream(4),
		stopCh:        make(chan struct{}),
	}
	e.Memory = memory.NewStore(
		memory.WithSource(stream(1)),
		memory.WithClock(opts.Now),
		memory.WithObserver(memory.ObserverFunc(e.record)),
	)

	if db != nil {
		st, err := db.LoadState()
		if err != nil {
			return nil, fmt.Errorf("load persona: %w", err)
		}
		if st != nil {
			e.restore(*st)
			e.Log.Info("persona restored",
				"name", e.Personality.Name(),
				"memories", e.Memory.Len(),
				"day", e.Memory.Day(),
				"interactions", e.interactions)
		}
	}
	e.observe()
	return e, nil
}

// Name returns the persona's name.
func (e *Engine) Name() string {
	return e.Personality.Name()
}

// Interactions returns the lifetime chat count.
func (e *Engine) Interactions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interactions
}

// Stage returns the development stage.
func (e *Engine) Stage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stage
}

// FirstRun reports whether this persona has never completed a session.
func (e *Engine) FirstRun() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.firstRun
}

// State captures the complete persona.
func (e *Engine) State() store.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Engine) state() store.State {
	return store.State{
		Name:         e.Personality.Name(),
		Interactions: e.interactions,
		Stage:        e.stage,
		FirstRun:     e.firstRun,
		Model:        e.model,
		Memory:       e.Memory.State(),
		Personality:  e.Personality.State(),
		Emotions:     e.Emotions.State(),
		Clock:        e.Clock.State(),
	}
}

// Restore replaces the persona with st and saves it.
func (e *Engine) Restore(st store.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restore(st)
	e.flush()
	if e.DB == nil {
		return nil
	}
	// The imported turn log may share nothing with the stored one.
	if err := e.DB.ReplaceState(e.state()); err != nil {
		return fmt.Errorf("save persona: %w", err)
	}
	e.unsaved = 0
	return nil
}

func (e *Engine) restore(st store.State) {
	e.Memory.Restore(st.Memory)
	e.Personality.Restore(st.Personality)
	e.Emotions.Restore(st.Emotions)
	e.Clock.Restore(st.Clock)
	e.interactions = st.Interactions
	e.stage = llm.Stage(st.Interactions)
	e.firstRun = st.FirstRun
	if st.Model != "" && e.model == "" {
		e.model = st.Model
	}
}

// Save writes the persona to the database. A nil DB makes it a no-op.
func (e *Engine) Save() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.save()
}

func (e *Engine) save() error {
	e.flush()
	if e.DB == nil {
		return nil
	}
	if err := e.DB.SaveState(e.state()); err != nil {
		return fmt.Errorf("save persona: %w", err)
	}
	e.unsaved = 0
	return nil
}

// autosave saves once autosaveEvery turns have completed since the last
// save. A turn completes when its exchange has been learned from.
func (e *Engine) autosave() error {
	if e.autosaveEvery <= 0 || e.unsaved < e.autosaveEvery {
		return nil
	}
	if err := e.save(); err != nil {
		return err
	}
	e.Log.Debug("autosaved", "interactions", e.interactions)
	return nil
}

// MarkAwakened clears the first-run flag once the birth greeting is shown.
func (e *Engine) MarkAwakened() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.firstRun = false
}

// record is the memory store observer. It runs under the store lock, so it
// only buffers.
func (e *Engine) record(ev memory.Event) {
	e.pendingMu.Lock()
	e.pending = append(e.pending, ev)
	e.pendingMu.Unlock()
}

// flush drains buffered memory events to metrics and the event log.
func (e *Engine) flush() {
	e.pendingMu.Lock()
	events := e.pending
	e.pending = nil
	e.pendingMu.Unlock()

	for i := range events {
		events[i].Turn = e.interactions
		e.Metrics.Event(events[i])
	}
	if e.DB != nil && len(events) > 0 {
		if err := e.DB.AddEvents(events); err != nil {
			e.Log.Warn("event log write failed", "events", len(events), "err", err)
		}
	}
	e.observe()
}

func (e *Engine) observe() {
	e.Metrics.ObserveStats(e.Memory.Stats())
}

// StartSession opens a session row for this process. surface names the
// entry point: serve, chat or mcp.
func (e *Engine) StartSession(surface string) error {
	if e.DB == nil {
		return nil
	}
	s, err := e.DB.StartSession(e.Name(), surface)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session = s.SessionID
	e.mu.Unlock()
	e.Log.Info("session started", "session", s.SessionID, "surface", surface)
	return nil
}

// EndSession completes the open session, if any.
func (e *Engine) EndSession() error {
	e.mu.Lock()
	id := e.session
	e.session = ""
	e.mu.Unlock()
	if e.DB == nil || id == "" {
		return nil
	}
	return e.DB.EndSession(id)
}
