package personality

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func testPersonality(t *testing.T) *Personality {
	t.Helper()
	return New("Akira", fixedSource(0.5))
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewJitterBounds(t *testing.T) {
	for _, f := range []float64{0, 0.25, 0.999} {
		p := New("x", fixedSource(f))
		for i, v := range p.Traits() {
			if v < 0.4-1e-9 || v > 0.6+1e-9 {
				t.Errorf("src %v: %s = %v, want within [0.4, 0.6]", f, Trait(i), v)
			}
		}
	}
	p := testPersonality(t)
	if got := p.Get(Curiosity); !near(got, 0.5) {
		t.Errorf("Curiosity = %v, want 0.5", got)
	}
	if got := p.Stats().Snapshots; got != 1 {
		t.Errorf("Snapshots = %d, want 1", got)
	}
}

func TestEvolve(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		emotion    float64
		importance float64
		want       map[Trait]float64
	}{
		{
			name:    "sadness scaled by emotion",
			content: "I was crying all night",
			emotion: 0.5,
			want: map[Trait]float64{
				Empathy: 0.51, EmotionalSensitivity: 0.51, Neuroticism: 0.505,
			},
		},
		{
			name:       "analysis scaled by importance",
			content:    "Why does the tide come in?",
			emotion:    0.1,
			importance: 1,
			want: map[Trait]float64{
				AnalyticalThinking: 0.52, Curiosity: 0.52, Openness: 0.51,
			},
		},
		{
			name:    "later rule replaces earlier change",
			content: "Sad yet happy",
			emotion: 1,
			want: map[Trait]float64{
				Empathy: 0.52, Optimism: 0.52, Neuroticism: 0.49,
			},
		},
		{
			name:       "openness from art wins over analysis",
			content:    "how to imagine art",
			emotion:    1,
			importance: 1,
			want: map[Trait]float64{
				Openness: 0.52, Creativity: 0.52, AnalyticalThinking: 0.52,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPersonality(t)
			deltas := p.Evolve(tt.content, tt.emotion, tt.importance)
			if len(deltas) == 0 {
				t.Fatal("Evolve returned no deltas")
			}
			for trait, want := range tt.want {
				if got := p.Get(trait); !near(got, want) {
					t.Errorf("%s = %v, want %v", trait, got, want)
				}
			}
			if got := p.Stats().Evolutions; got != 1 {
				t.Errorf("Evolutions = %d, want 1", got)
			}
		})
	}
}

func TestEvolveNoMatch(t *testing.T) {
	p := testPersonality(t)
	before := p.Traits()
	if d := p.Evolve("The train leaves at noon", 1, 1); d != nil {
		t.Errorf("Evolve = %v, want nil", d)
	}
	if p.Traits() != before {
		t.Error("traits changed without a matching rule")
	}
	if got := p.Stats().Snapshots; got != 1 {
		t.Errorf("Snapshots = %d, want 1", got)
	}
}

func TestEvolveClamps(t *testing.T) {
	p := testPersonality(t)
	p.Restore(State{Traits: map[string]float64{"philosophical_inclination": 0.99}})
	p.Evolve("the meaning of existence", 0, 1)
	if got := p.Get(PhilosophicalInclination); got != 1 {
		t.Errorf("PhilosophicalInclination = %v, want 1", got)
	}
}

func TestEvolveTruncatesInfluence(t *testing.T) {
	p := testPersonality(t)
	p.Evolve(strings.Repeat("joy ", 60), 1, 1)
	s := p.State()
	if len(s.Influences) != 1 {
		t.Fatalf("Influences = %d, want 1", len(s.Influences))
	}
	if n := len([]rune(s.Influences[0].Content)); n != maxInfluence {
		t.Errorf("influence content = %d runes, want %d", n, maxInfluence)
	}
}

func TestDominantAndMatches(t *testing.T) {
	p := testPersonality(t)
	p.Restore(State{Traits: map[string]float64{
		"openness": 0.8, "analytical_thinking": 0.9, "extraversion": 0.2,
	}})
	d := p.Dominant()
	if d.Type != "INTJ" || !near(d.Score, 1) {
		t.Errorf("Dominant = %+v, want INTJ with score 1", d)
	}
	m := p.Matches()
	if len(m) != len(Archetypes()) {
		t.Fatalf("Matches = %d, want %d", len(m), len(Archetypes()))
	}
	if m[0].Type != "INTJ" {
		t.Errorf("best match = %q, want INTJ", m[0].Type)
	}
	for i := 1; i < len(m); i++ {
		if m[i].Score > m[i-1].Score {
			t.Fatalf("Matches not sorted at %d", i)
		}
	}
}

func TestChanges(t *testing.T) {
	p := testPersonality(t)
	if c := p.Changes(); c != nil {
		t.Errorf("Changes before evolution = %v, want nil", c)
	}
	for range 8 {
		p.Evolve("what a funny joke", 1, 0)
	}
	c := p.Changes()
	if len(c) != 1 || c[0].Trait != HumorTendency {
		t.Fatalf("Changes = %+v, want humor_tendency only", c)
	}
	if !near(c[0].From, 0.5) || !near(c[0].To, 0.66) {
		t.Errorf("change = %v -> %v, want 0.5 -> 0.66", c[0].From, c[0].To)
	}
}

func TestStateRestore(t *testing.T) {
	a := testPersonality(t)
	a.Evolve("I love to create things together", 0.8, 0.5)

	b := New("Someone", fixedSource(0))
	b.Restore(a.State())
	if b.Name() != "Akira" {
		t.Errorf("Name = %q, want Akira", b.Name())
	}
	if b.Traits() != a.Traits() {
		t.Errorf("traits = %v, want %v", b.Traits(), a.Traits())
	}
	if b.Stats().Evolutions != 1 || b.Stats().Snapshots != 2 {
		t.Errorf("stats = %+v", b.Stats())
	}
}

func TestRestoreIgnoresUnknownTraits(t *testing.T) {
	p := testPersonality(t)
	before := p.Traits()
	p.Restore(State{Traits: map[string]float64{"charisma": 1}})
	if p.Traits() != before {
		t.Error("unknown trait changed the vector")
	}
}

func TestPrompt(t *testing.T) {
	p := testPersonality(t)
	plain := p.Prompt(0)
	if !strings.HasPrefix(plain, "You are Akira,") {
		t.Errorf("prompt = %q", plain)
	}
	for _, s := range []string{"very open", "concise", "active memories", "humor"} {
		if strings.Contains(plain, s) {
			t.Errorf("neutral prompt mentions %q", s)
		}
	}

	p.Restore(State{Traits: map[string]float64{
		"openness": 0.9, "extraversion": 0.1, "verbosity": 0.2, "humor_tendency": 0.65,
	}})
	got := p.Prompt(4)
	for _, s := range []string{
		"You're very open to new ideas and experiences. You're more reserved and thoughtful. ",
		"You often use humor",
		"You prefer concise",
		"You have 4 active memories",
	} {
		if !strings.Contains(got, s) {
			t.Errorf("prompt missing %q:\n%s", s, got)
		}
	}
}

func TestTraitJSON(t *testing.T) {
	b, err := json.Marshal(Delta{Trait: HumorTendency, Amount: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"trait":"humor_tendency","amount":0.1}`; string(b) != want {
		t.Errorf("marshal = %s, want %s", b, want)
	}
	var d Delta
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatal(err)
	}
	if d.Trait != HumorTendency {
		t.Errorf("Trait = %v, want humor_tendency", d.Trait)
	}
	if err := json.Unmarshal([]byte(`{"trait":"charisma"}`), &d); err == nil {
		t.Error("unknown trait decoded without error")
	}
}
