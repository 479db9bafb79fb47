package memory

import (
	"math"
	"math/rand"
	randv2 "math/rand/v2"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SleepEvery is the number of simulated days between sleep consolidations.
const SleepEvery = 3

// Turn is one exchange in the conversation log.
type Turn struct {
	Input    string    `json:"user"`
	Response string    `json:"ai"`
	Day      int       `json:"day"`
	At       time.Time `json:"time"`
	Mode     string    `json:"operational_mode"`
}

// Stats summarizes the store.
type Stats struct {
	Total       int     `json:"total"`
	AvgStrength float64 `json:"avg_strength"`
	Strong      int     `json:"strong"`
	Weak        int     `json:"weak"`
	Days        int     `json:"days"`
	SleepCycles int     `json:"sleep_cycles"`
}

// ActiveMemory is a record currently strong enough to be on the persona's mind.
type ActiveMemory struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	Strength float64 `json:"strength"`
	Context  string  `json:"context"`
	Emotion  float64 `json:"emotion"`
}

// ContextSnapshot is the memory state handed to prompt construction.
type ContextSnapshot struct {
	Active      []ActiveMemory `json:"active_memories"`
	WeakCount   int            `json:"weak_memories_count"`
	Total       int            `json:"total_memories"`
	Days        int            `json:"days_lived"`
	SleepCycles int            `json:"sleep_cycles"`
}

// DayReport describes what happened during one AdvanceDay call.
type DayReport struct {
	Day           int      `json:"day"`
	Wandered      string   `json:"wandered,omitempty"`
	ActiveContext string   `json:"active_context,omitempty"`
	Activated     []string `json:"activated,omitempty"`
	Consolidated  bool     `json:"consolidated"`
	Stats         Stats    `json:"stats"`
}

// State is the complete serializable store state.
type State struct {
	Day         int      `json:"days"`
	SleepCycles int      `json:"sleep_cycles"`
	Records     []Record `json:"memories"`
	Turns       []Turn   `json:"conversation_history"`
}

// Store owns every memory record and the simulated day counter. All public
// methods hold a single lock: decay and insertion-time interference read the
// whole collection while mutating individual records.
type Store struct {
	mu          sync.Mutex
	records     []*Record
	byID        map[string]*Record
	day         int
	sleepCycles int
	turns       []Turn

	src      Source
	now      func() time.Time
	newID    func() string
	observer Observer
}

// Option configures a Store.
type Option func(*Store)

// WithSource sets the random source. Use a seeded *rand.Rand in tests.
func WithSource(src Source) Option {
	return func(s *Store) { s.src = src }
}

// WithClock overrides the wall clock used for CreatedAt and turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides record ID generation.
func WithIDs(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithObserver registers an activity observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// NewStore returns an empty store at day 0.
func NewStore(opts ...Option) *Store {
	s := &Store{
		byID: make(map[string]*Record),
		src:  globalSource{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
		s.newID = func() string {
			return ulid.MustNew(ulid.Timestamp(s.now()), entropy).String()
		}
	}
	return s
}

// SetObserver replaces the activity observer.
func (s *Store) SetObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Add creates a record and applies its insertion-time interference to the
// records that already existed. Emotion and importance are clamped to [0,1].
func (s *Store) Add(content string, emotion, importance float64, context string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := newRecord(content, clamp(emotion, 0, 1), clamp(importance, 0, 1), context, s.src, s.now())
	r.ID = s.newID()
	s.records = append(s.records, r)
	s.byID[r.ID] = r

	s.emit(Event{Kind: EventCreated, RecordIDs: []string{r.ID}, Detail: map[string]any{
		"content":    r.Content,
		"context":    r.Context,
		"emotion":    r.EmotionWeight,
		"importance": r.Importance,
		"strength":   r.StrengthHistory[0],
	}})

	s.processInterference(r)
	return r.Clone()
}

// processInterference weakens earlier records that share words with the new
// one. It compares current content, unlike Record.Interference.
func (s *Store) processInterference(added *Record) {
	newWords := wordSet(added.Content)
	var hit []string
	for _, existing := range s.records[:len(s.records)-1] {
		sim := jaccard(newWords, wordSet(existing.Content))
		if sim <= 0.4 {
			continue
		}
		existing.BaseStrength *= 1 - sim*0.1*(1-existing.InterferenceResistance)
		hit = append(hit, existing.ID)
	}
	if len(hit) > 0 {
		s.emit(Event{Kind: EventInterference, RecordIDs: hit, Detail: map[string]any{
			"source": added.ID,
		}})
	}
}

// AdvanceDay moves the simulation forward one day.
func (s *Store) AdvanceDay() DayReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.day++
	report := DayReport{Day: s.day}

	for _, r := range s.records {
		r.Decay(s.day, s.records, s.src)
	}

	if s.src.Float64() < 0.3 && len(s.records) > 0 {
		r := s.records[s.src.IntN(len(s.records))]
		r.Access(s.day)
		report.Wandered = r.ID
	}

	report.ActiveContext, report.Activated = s.contextActivation()

	if s.day%SleepEvery == 0 {
		s.sleepConsolidation()
		report.Consolidated = true
	}

	report.Stats = s.stats()
	s.emit(Event{Kind: EventDayAdvance, Detail: map[string]any{
		"wandered":       report.Wandered,
		"active_context": report.ActiveContext,
		"activated":      len(report.Activated),
		"avg_strength":   report.Stats.AvgStrength,
	}})
	return report
}

// contextActivation picks the context of a random record and reactivates
// records sharing it. Frequent contexts are picked more often.
func (s *Store) contextActivation() (string, []string) {
	if len(s.records) <= 1 {
		return "", nil
	}
	active := s.records[s.src.IntN(len(s.records))].Context
	var activated []string
	for _, r := range s.records {
		if r.Context == active && s.src.Float64() < 0.2 {
			r.Access(s.day)
			activated = append(activated, r.ID)
		}
	}
	return active, activated
}

// SleepConsolidation runs one consolidation cycle over every record.
func (s *Store) SleepConsolidation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleepConsolidation()
}

func (s *Store) sleepConsolidation() {
	s.sleepCycles++
	for _, r := range s.records {
		r.Consolidate(s.src)
	}
	s.emit(Event{Kind: EventConsolidation, Detail: map[string]any{
		"sleep_cycle": s.sleepCycles,
		"memories":    len(s.records),
	}})
}

// Recall probabilistically retrieves records related to query. Every
// returned record has been reinforced. Results keep creation order.
func (s *Store) Recall(query string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	queryWords := wordSet(query)
	var out []Record
	var ids []string
	for _, r := range s.records {
		match := float64(overlap(wordSet(r.Content), queryWords))
		strength := r.TotalStrength(s.src)
		recency := 1 / (1 + float64(s.day-r.LastAccessedDay)*0.1)
		p := 0.4*match + 0.4*strength + 0.2*recency

		if s.src.Float64() < math.Min(p*0.8, 1) {
			r.Access(s.day)
			out = append(out, r.Clone())
			ids = append(ids, r.ID)
		}
	}

	s.emit(Event{Kind: EventRecall, RecordIDs: ids, Detail: map[string]any{
		"query":    query,
		"recalled": len(ids),
	}})
	return out
}

// Stats returns aggregate counts. An empty store reports zeros.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats()
}

func (s *Store) stats() Stats {
	st := Stats{Total: len(s.records), Days: s.day, SleepCycles: s.sleepCycles}
	if len(s.records) == 0 {
		return st
	}
	sum := 0.0
	for _, r := range s.records {
		v := r.TotalStrength(s.src)
		sum += v
		switch {
		case v > 0.7:
			st.Strong++
		case v < 0.3:
			st.Weak++
		}
	}
	st.AvgStrength = sum / float64(len(s.records))
	return st
}

// ContextSnapshot splits records into active (strength > 0.3) and weak.
func (s *Store) ContextSnapshot() ContextSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := ContextSnapshot{
		Active:      []ActiveMemory{},
		Total:       len(s.records),
		Days:        s.day,
		SleepCycles: s.sleepCycles,
	}
	for _, r := range s.records {
		v := r.TotalStrength(s.src)
		if v <= 0.3 {
			snap.WeakCount++
			continue
		}
		snap.Active = append(snap.Active, ActiveMemory{
			ID:       r.ID,
			Content:  r.Content,
			Strength: v,
			Context:  r.Context,
			Emotion:  r.EmotionWeight,
		})
	}
	return snap
}

// Strength samples the current total strength of a record.
func (s *Store) Strength(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return 0, false
	}
	return r.TotalStrength(s.src), true
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return r.Clone(), true
}

// Records returns copies of all records in creation order.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Day returns the current simulated day.
func (s *Store) Day() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

// SleepCycles returns the number of consolidation cycles run so far.
func (s *Store) SleepCycles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sleepCycles
}

// LogTurn appends a conversation exchange stamped with the current day.
func (s *Store) LogTurn(input, response, mode string) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := Turn{Input: input, Response: response, Day: s.day, At: s.now(), Mode: mode}
	s.turns = append(s.turns, t)
	return t
}

// Turns returns the conversation log.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// State captures the full store for persistence.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Day:         s.day,
		SleepCycles: s.sleepCycles,
		Records:     make([]Record, len(s.records)),
		Turns:       append([]Turn{}, s.turns...),
	}
	for i, r := range s.records {
		st.Records[i] = r.Clone()
	}
	return st
}

// Restore replaces the store contents with st. Records without an ID are
// assigned one.
func (s *Store) Restore(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.day = st.Day
	s.sleepCycles = st.SleepCycles
	s.turns = append([]Turn(nil), st.Turns...)
	s.records = make([]*Record, 0, len(st.Records))
	s.byID = make(map[string]*Record, len(st.Records))
	for i := range st.Records {
		r := st.Records[i].Clone()
		if r.ID == "" {
			r.ID = s.newID()
		}
		if r.Fingerprint == "" {
			r.Fingerprint = Fingerprint(identityText(r))
		}
		s.records = append(s.records, &r)
		s.byID[r.ID] = &r
	}
}

// identityText is the text a fingerprint is computed over: the content as
// first written.
func identityText(r Record) string {
	if r.OriginalContent != "" {
		return r.OriginalContent
	}
	return r.Content
}

func (s *Store) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.Day = s.day
	e.At = s.now()
	s.observer.OnEvent(e)
}

// globalSource draws from the math/rand/v2 top-level generator.
type globalSource struct{}

func (globalSource) Float64() float64 { return randv2.Float64() }
func (globalSource) IntN(n int) int { return randv2.IntN(n) }
