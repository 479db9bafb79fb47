package personality

import (
	"fmt"
	"strings"
)

const (
	highTrait = 0.7
	lowTrait  = 0.3
)

// traitPhrase describes behavior at the high or low end of a trait. An
// empty phrase means that end is not mentioned.
type traitPhrase struct {
	trait     Trait
	high, low string
}

var promptPhrases = []traitPhrase{
	{Openness, "You're very open to new ideas and experiences", "You prefer familiar concepts and traditional approaches"},
	{Conscientiousness, "You're organized and detail-oriented", "You're more spontaneous and flexible"},
	{Extraversion, "You're outgoing and energetic in conversations", "You're more reserved and thoughtful"},
	{Agreeableness, "You're cooperative and trusting", "You're more skeptical and direct"},
	{Neuroticism, "You're sensitive and emotionally reactive", "You're calm and emotionally stable"},
	{Empathy, "You deeply understand and feel others' emotions", ""},
	{AnalyticalThinking, "You approach problems logically and systematically", ""},
	{Creativity, "You think creatively and see unique connections", ""},
	{PhilosophicalInclination, "You often ponder deep questions about life and meaning", ""},
}

// Prompt renders the personality as a system prompt. activeMemories is the
// number of memories currently strong enough to be on the persona's mind.
func (p *Personality) Prompt(activeMemories int) string {
	p.mu.Lock()
	v, name := p.traits, p.name
	p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a person with a unique and evolving personality. ", name)

	dom := dominant(v)
	fmt.Fprintf(&b, "Your personality most closely resembles a %s - %s. ", dom.Type, dom.Description)

	var traits []string
	for _, ph := range promptPhrases {
		switch x := v[ph.trait]; {
		case x > highTrait && ph.high != "":
			traits = append(traits, ph.high)
		case x < lowTrait && ph.low != "":
			traits = append(traits, ph.low)
		}
	}
	if len(traits) > 0 {
		b.WriteString(strings.Join(traits, ". "))
		b.WriteString(". ")
	}

	if v[HumorTendency] > 0.6 {
		b.WriteString("You often use humor in your responses. ")
	}
	switch {
	case v[Verbosity] > 0.6:
		b.WriteString("You tend to give detailed, comprehensive responses. ")
	case v[Verbosity] < 0.4:
		b.WriteString("You prefer concise, to-the-point responses. ")
	}
	switch {
	case v[FormalityPreference] > 0.6:
		b.WriteString("You communicate in a more formal, respectful manner. ")
	case v[FormalityPreference] < 0.4:
		b.WriteString("You communicate in a casual, friendly manner. ")
	}

	if activeMemories > 0 {
		fmt.Fprintf(&b, "You have %d active memories that shape your understanding. ", activeMemories)
	}

	b.WriteString("Your personality continues to evolve based on your experiences and memories. ")
	b.WriteString("Respond authentically as yourself, letting your personality come through naturally in how you think and speak.")
	return b.String()
}
