package personality

import "fmt"

// Trait is one dimension of the personality vector.
type Trait int

const (
	Openness Trait = iota
	Conscientiousness
	Extraversion
	Agreeableness
	Neuroticism
	Curiosity
	Empathy
	Optimism
	Creativity
	AnalyticalThinking
	EmotionalSensitivity
	FormalityPreference
	Verbosity
	HumorTendency
	PhilosophicalInclination
	DetailFocus
	EmotionalMemoryBias
	SocialMemoryPriority

	NumTraits
)

var traitNames = [NumTraits]string{
	"openness",
	"conscientiousness",
	"extraversion",
	"agreeableness",
	"neuroticism",
	"curiosity",
	"empathy",
	"optimism",
	"creativity",
	"analytical_thinking",
	"emotional_sensitivity",
	"formality_preference",
	"verbosity",
	"humor_tendency",
	"philosophical_inclination",
	"detail_focus",
	"emotional_memory_bias",
	"social_memory_priority",
}

func (t Trait) String() string {
	if t < 0 || t >= NumTraits {
		return "unknown"
	}
	return traitNames[t]
}

// MarshalText encodes the trait by name.
func (t Trait) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a trait name.
func (t *Trait) UnmarshalText(b []byte) error {
	v, ok := ParseTrait(string(b))
	if !ok {
		return fmt.Errorf("unknown trait %q", b)
	}
	*t = v
	return nil
}

// ParseTrait looks a trait up by its snake_case name.
func ParseTrait(name string) (Trait, bool) {
	for i, n := range traitNames {
		if n == name {
			return Trait(i), true
		}
	}
	return 0, false
}

// Groups used for display. Every trait appears in exactly one group.
var Groups = []struct {
	Name   string
	Traits []Trait
}{
	{"big_five", []Trait{Openness, Conscientiousness, Extraversion, Agreeableness, Neuroticism}},
	{"cognitive", []Trait{Curiosity, AnalyticalThinking, Creativity, PhilosophicalInclination}},
	{"social", []Trait{Empathy, EmotionalSensitivity, HumorTendency}},
	{"communication", []Trait{FormalityPreference, Verbosity, DetailFocus}},
	{"outlook", []Trait{Optimism, EmotionalMemoryBias, SocialMemoryPriority}},
}

// Vector holds a value in [0,1] for every trait.
type Vector [NumTraits]float64

// Map returns the vector keyed by trait name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, NumTraits)
	for i, x := range v {
		m[traitNames[i]] = x
	}
	return m
}

// Delta is a tagged change to a single trait.
type Delta struct {
	Trait  Trait   `json:"trait"`
	Amount float64 `json:"amount"`
}

// apply adds each delta to v, clamping to [0,1].
func (v *Vector) apply(deltas []Delta) {
	for _, d := range deltas {
		v[d.Trait] = clamp01(v[d.Trait] + d.Amount)
	}
}

// changeSet collects deltas where a later write to the same trait replaces
// an earlier one.
type changeSet struct {
	amount [NumTraits]float64
	set    [NumTraits]bool
}

func (c *changeSet) put(t Trait, amount float64) {
	c.amount[t] = amount
	c.set[t] = true
}

func (c *changeSet) deltas() []Delta {
	var out []Delta
	for i := range c.amount {
		if c.set[i] {
			out = append(out, Delta{Trait: Trait(i), Amount: c.amount[i]})
		}
	}
	return out
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
