// Package emotion tracks a persona's mood across conversation turns.
package emotion

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Emotion is one of the core mood dimensions.
type Emotion int

const (
	Happiness Emotion = iota
	Sadness
	Anxiety
	Anger
	Excitement
	Calm
	Curiosity
	Empathy
	Confidence
	Loneliness
	Contentment
	Frustration

	NumEmotions
)

var emotionNames = [NumEmotions]string{
	"happiness", "sadness", "anxiety", "anger", "excitement", "calm",
	"curiosity", "empathy", "confidence", "loneliness", "contentment", "frustration",
}

func (e Emotion) String() string {
	if e < 0 || e >= NumEmotions {
		return "unknown"
	}
	return emotionNames[e]
}

// MarshalText encodes the emotion by name.
func (e Emotion) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes an emotion name.
func (e *Emotion) UnmarshalText(b []byte) error {
	v, ok := ParseEmotion(string(b))
	if !ok {
		return fmt.Errorf("unknown emotion %q", b)
	}
	*e = v
	return nil
}

// ParseEmotion looks an emotion up by name.
func ParseEmotion(name string) (Emotion, bool) {
	for i, n := range emotionNames {
		if n == name {
			return Emotion(i), true
		}
	}
	return 0, false
}

// Levels holds a value in [0,1] for every emotion.
type Levels [NumEmotions]float64

// Map returns the levels keyed by emotion name.
func (l Levels) Map() map[string]float64 {
	m := make(map[string]float64, NumEmotions)
	for i, v := range l {
		m[emotionNames[i]] = v
	}
	return m
}

// Baseline is the resting mood every emotion decays toward.
var Baseline = Levels{
	Happiness:   0.5,
	Sadness:     0.2,
	Anxiety:     0.3,
	Anger:       0.1,
	Excitement:  0.4,
	Calm:        0.6,
	Curiosity:   0.5,
	Empathy:     0.5,
	Confidence:  0.5,
	Loneliness:  0.2,
	Contentment: 0.5,
	Frustration: 0.2,
}

// Meta describes how emotions are felt rather than what is felt.
type Meta struct {
	Intensity float64 `json:"emotional_intensity"`
	Stability float64 `json:"emotional_stability"`
	Awareness float64 `json:"emotional_awareness"`
}

var defaultMeta = Meta{Intensity: 0.5, Stability: 0.6, Awareness: 0.4}

const (
	unstableBelow      = 0.5
	fluctuateChance    = 0.3
	fluctuateAmount    = 0.03
	decayRate          = 0.02
	vividRecall        = 0.7
	vividIntensity     = 0.05
	vividEmpathy       = 0.04
	maxTriggerRunes    = 50
	trendWindow        = 3
	trendThresholdPct  = 10
	dominantEmotionTop = 3
)

// Source supplies randomness for mood fluctuation.
type Source interface {
	Float64() float64
}

// Change is a tagged adjustment to one emotion.
type Change struct {
	Emotion Emotion `json:"emotion"`
	Amount  float64 `json:"amount"`
}

// Trigger records a conversation turn that moved the mood.
type Trigger struct {
	Input     string    `json:"trigger"`
	Changes   []Change  `json:"changes"`
	Intensity float64   `json:"intensity_change,omitempty"`
	At        time.Time `json:"timestamp"`
}

// Snapshot is the mood at a point in time.
type Snapshot struct {
	At          time.Time `json:"timestamp"`
	Trigger     string    `json:"trigger"`
	Levels      Levels    `json:"emotions"`
	Meta        Meta      `json:"meta"`
	Description string    `json:"emotional_description"`
}

// Level pairs an emotion with its value.
type Level struct {
	Emotion Emotion `json:"emotion"`
	Value   float64 `json:"value"`
}

// Monitor is safe for concurrent use.
type Monitor struct {
	mu       sync.Mutex
	levels   Levels
	meta     Meta
	history  []Snapshot
	triggers []Trigger
	src      Source
	now      func() time.Time
}

// New creates a monitor at the baseline mood.
func New(src Source) *Monitor {
	m := &Monitor{levels: Baseline, meta: defaultMeta, src: src, now: time.Now}
	m.snapshot("initialization")
	return m
}

// Levels returns the current mood.
func (m *Monitor) Levels() Levels {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels
}

// Meta returns the current meta-emotional state.
func (m *Monitor) Meta() Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

// Update adjusts the mood from one conversation turn. recalled holds the
// emotion weights of the memories surfaced for the turn.
func (m *Monitor) Update(input, response string, recalled []float64) {
	content := strings.ToLower(input + " " + response)

	var cs changeSet
	for _, t := range triggers {
		if containsAny(content, t.keywords) {
			for _, c := range t.changes {
				cs.put(c.Emotion, c.Amount)
			}
		}
	}

	var intensity float64
	if len(recalled) > 0 && mean(recalled) > vividRecall {
		intensity += vividIntensity
		cs.add(Empathy, vividEmpathy)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	factor := 0.5 + m.meta.Intensity*0.5
	changes := cs.changes()
	for _, c := range changes {
		m.levels[c.Emotion] = clamp01(m.levels[c.Emotion] + c.Amount*factor)
	}
	m.meta.Intensity = clamp01(m.meta.Intensity + intensity*factor)

	if m.meta.Stability < unstableBelow {
		m.fluctuate()
	}

	if len(changes) > 0 || intensity != 0 {
		in := input
		if r := []rune(in); len(r) > maxTriggerRunes {
			in = string(r[:maxTriggerRunes])
		}
		m.triggers = append(m.triggers, Trigger{Input: in + "...", Changes: changes, Intensity: intensity, At: m.now()})
	}

	m.decay()
	m.snapshot("conversation")
}

func (m *Monitor) fluctuate() {
	for i := range m.levels {
		if m.src.Float64() < fluctuateChance {
			delta := -fluctuateAmount + m.src.Float64()*2*fluctuateAmount
			m.levels[i] = clamp01(m.levels[i] + delta)
		}
	}
}

// decay moves every emotion toward its baseline without overshooting.
func (m *Monitor) decay() {
	rate := decayRate * (1 - m.meta.Stability)
	for i, v := range m.levels {
		base := Baseline[i]
		if v > base {
			m.levels[i] = v - math.Min(rate, v-base)
		} else {
			m.levels[i] = v + math.Min(rate, base-v)
		}
	}
}

// snapshot must be called with mu held.
func (m *Monitor) snapshot(trigger string) {
	m.history = append(m.history, Snapshot{
		At:          m.now(),
		Trigger:     trigger,
		Levels:      m.levels,
		Meta:        m.meta,
		Description: describe(m.levels),
	})
}

// Dominant returns the n strongest emotions. Ties keep declaration order.
func (m *Monitor) Dominant(n int) []Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return dominant(m.levels, n)
}

func dominant(l Levels, n int) []Level {
	out := make([]Level, NumEmotions)
	for i, v := range l {
		out[i] = Level{Emotion: Emotion(i), Value: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Describe renders the mood as a short phrase.
func (m *Monitor) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return describe(m.levels)
}

func describe(l Levels) string {
	top := dominant(l, 2)
	second := top[1].Emotion
	switch {
	case l[Happiness] > 0.7:
		return fmt.Sprintf("feeling quite happy and %s", second)
	case l[Sadness] > 0.6:
		return fmt.Sprintf("feeling rather sad with some %s", second)
	case l[Anxiety] > 0.6:
		return fmt.Sprintf("feeling anxious and %s", second)
	case l[Excitement] > 0.7:
		return fmt.Sprintf("feeling excited and %s", second)
	case l[Calm] > 0.7:
		return fmt.Sprintf("feeling calm and %s", second)
	}
	return fmt.Sprintf("feeling %s with a mix of %s", top[0].Emotion, second)
}

// Patterns summarizes how happiness and anxiety moved over the last few
// snapshots. name is the persona's name.
func (m *Monitor) Patterns(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) < trendWindow {
		return "Not enough emotional data to analyze patterns yet."
	}
	recent := m.history[len(m.history)-trendWindow:]
	first, last := recent[0].Levels, recent[len(recent)-1].Levels

	var patterns []string
	switch d := pct(last[Happiness]) - pct(first[Happiness]); {
	case d > trendThresholdPct:
		patterns = append(patterns, "becoming happier")
	case d < -trendThresholdPct:
		patterns = append(patterns, "becoming less happy")
	}
	switch d := pct(last[Anxiety]) - pct(first[Anxiety]); {
	case d > trendThresholdPct:
		patterns = append(patterns, "showing increased anxiety")
	case d < -trendThresholdPct:
		patterns = append(patterns, "becoming more relaxed")
	}
	if len(patterns) == 0 {
		return fmt.Sprintf("%s's emotional state has been relatively stable recently.", name)
	}
	return fmt.Sprintf("%s seems to be %s recently.", name, strings.Join(patterns, ", "))
}

// pct converts a level to a percentage rounded to one decimal.
func pct(v float64) float64 {
	return math.Round(v*1000) / 10
}

// Status is the mood summary served to clients.
type Status struct {
	Levels      map[string]float64 `json:"emotions"`
	Meta        Meta               `json:"meta"`
	Dominant    []Level            `json:"dominant_emotions"`
	Description string             `json:"description"`
	Triggers    int                `json:"trigger_count"`
	Snapshots   int                `json:"snapshot_count"`
}

// Status returns the current summary.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Levels:      m.levels.Map(),
		Meta:        m.meta,
		Dominant:    dominant(m.levels, dominantEmotionTop),
		Description: describe(m.levels),
		Triggers:    len(m.triggers),
		Snapshots:   len(m.history),
	}
}

// State is the persisted form of a Monitor.
type State struct {
	Levels   map[string]float64 `json:"emotions"`
	Meta     Meta               `json:"meta"`
	History  []Snapshot         `json:"emotion_history"`
	Triggers []Trigger          `json:"emotional_triggers"`
}

// State captures the monitor for persistence.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Levels:   m.levels.Map(),
		Meta:     m.meta,
		History:  append([]Snapshot(nil), m.history...),
		Triggers: append([]Trigger(nil), m.triggers...),
	}
}

// Restore loads persisted state. Emotions missing from s keep their value
// and a zero Meta keeps the current one.
func (m *Monitor) Restore(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, v := range s.Levels {
		if e, ok := ParseEmotion(name); ok {
			m.levels[e] = clamp01(v)
		}
	}
	if s.Meta != (Meta{}) {
		m.meta = Meta{
			Intensity: clamp01(s.Meta.Intensity),
			Stability: clamp01(s.Meta.Stability),
			Awareness: clamp01(s.Meta.Awareness),
		}
	}
	if len(s.History) > 0 {
		m.history = append([]Snapshot(nil), s.History...)
	}
	m.triggers = append([]Trigger(nil), s.Triggers...)
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
