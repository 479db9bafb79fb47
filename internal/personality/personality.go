// Package personality models a trait vector that drifts with the content of
// the memories the persona forms.
package personality

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Source supplies randomness for the initial trait jitter.
type Source interface {
	Float64() float64
}

const (
	initialTrait      = 0.5
	initialJitter     = 0.1
	significantChange = 0.1 // drift reported by Changes
	maxInfluence      = 100 // runes of memory content kept per Influence
)

// Match is an archetype scored against the current traits.
type Match struct {
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Score       float64 `json:"match_score"`
}

// Influence records how a memory changed the personality.
type Influence struct {
	Content string    `json:"memory_content"`
	Deltas  []Delta   `json:"changes"`
	At      time.Time `json:"timestamp"`
}

// Snapshot is the trait vector at a point in time.
type Snapshot struct {
	At      time.Time `json:"timestamp"`
	Trigger string    `json:"trigger"`
	Traits  Vector    `json:"traits"`
}

// Change is a trait that has drifted significantly since the first snapshot.
type Change struct {
	Trait Trait   `json:"trait"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// Personality is safe for concurrent use.
type Personality struct {
	mu         sync.Mutex
	name       string
	traits     Vector
	history    []Snapshot
	influences []Influence
	now        func() time.Time
}

// New creates a personality with every trait near 0.5.
func New(name string, src Source) *Personality {
	p := &Personality{name: name, now: time.Now}
	for i := range p.traits {
		jitter := -initialJitter + src.Float64()*2*initialJitter
		p.traits[i] = clamp01(initialTrait + jitter)
	}
	p.snapshot("initialization")
	return p
}

// Name returns the persona's name.
func (p *Personality) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// Get returns the current value of t.
func (p *Personality) Get(t Trait) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.traits[t]
}

// Traits returns a copy of the trait vector.
func (p *Personality) Traits() Vector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.traits
}

// Evolve nudges traits according to keywords found in a memory's content.
// It returns the deltas applied, or nil if no rule fired.
func (p *Personality) Evolve(content string, emotion, importance float64) []Delta {
	lower := strings.ToLower(content)
	var cs changeSet
	for _, r := range evolutionRules {
		if !containsAny(lower, r.keywords) {
			continue
		}
		weight := emotion
		if r.scale == byImportance {
			weight = importance
		}
		for _, d := range r.deltas {
			cs.put(d.Trait, d.Amount*weight)
		}
	}
	deltas := cs.deltas()
	if len(deltas) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.traits.apply(deltas)
	if r := []rune(content); len(r) > maxInfluence {
		content = string(r[:maxInfluence])
	}
	p.influences = append(p.influences, Influence{Content: content, Deltas: deltas, At: p.now()})
	p.snapshot("memory")
	return deltas
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// snapshot must be called with mu held (or before p is shared).
func (p *Personality) snapshot(trigger string) {
	p.history = append(p.history, Snapshot{At: p.now(), Trigger: trigger, Traits: p.traits})
}

// Dominant returns the closest archetype. Ties keep table order.
func (p *Personality) Dominant() Match {
	p.mu.Lock()
	defer p.mu.Unlock()
	return dominant(p.traits)
}

func dominant(v Vector) Match {
	best := Match{Score: -1}
	for _, a := range archetypes {
		if s := a.match(v); s > best.Score {
			best = Match{Category: a.Category, Type: a.Name, Description: a.Description, Score: s}
		}
	}
	return best
}

// Matches scores every archetype, best first.
func (p *Personality) Matches() []Match {
	p.mu.Lock()
	v := p.traits
	p.mu.Unlock()

	out := make([]Match, len(archetypes))
	for i, a := range archetypes {
		out[i] = Match{Category: a.Category, Type: a.Name, Description: a.Description, Score: a.match(v)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Changes lists traits that moved more than 0.1 since initialization.
func (p *Personality) Changes() []Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) < 2 {
		return nil
	}
	first, last := p.history[0].Traits, p.history[len(p.history)-1].Traits
	var out []Change
	for i := range first {
		if math.Abs(last[i]-first[i]) > significantChange {
			out = append(out, Change{Trait: Trait(i), From: first[i], To: last[i]})
		}
	}
	return out
}

// Stats summarizes the personality for display.
type Stats struct {
	Name       string             `json:"name"`
	Dominant   Match              `json:"dominant_personality"`
	Traits     map[string]float64 `json:"traits"`
	Evolutions int                `json:"personality_evolution_count"`
	Snapshots  int                `json:"total_snapshots"`
}

// Stats returns the current summary.
func (p *Personality) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:       p.name,
		Dominant:   dominant(p.traits),
		Traits:     p.traits.Map(),
		Evolutions: len(p.influences),
		Snapshots:  len(p.history),
	}
}

// State is the persisted form of a Personality.
type State struct {
	Name       string             `json:"name"`
	Traits     map[string]float64 `json:"traits"`
	History    []Snapshot         `json:"personality_history"`
	Influences []Influence        `json:"personality_influences"`
}

// State captures the personality for persistence.
func (p *Personality) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Name:       p.name,
		Traits:     p.traits.Map(),
		History:    append([]Snapshot(nil), p.history...),
		Influences: append([]Influence(nil), p.influences...),
	}
}

// Restore loads persisted state. Traits missing from s keep their value.
func (p *Personality) Restore(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Name != "" {
		p.name = s.Name
	}
	for name, v := range s.Traits {
		if t, ok := ParseTrait(name); ok {
			p.traits[t] = clamp01(v)
		}
	}
	if len(s.History) > 0 {
		p.history = append([]Snapshot(nil), s.History...)
	}
	p.influences = append([]Influence(nil), s.Influences...)
}
