package personality

// scaleBy selects which memory weight scales a rule's deltas.
type scaleBy int

const (
	byEmotion scaleBy = iota
	byImportance
)

// rule fires when any keyword occurs as a substring of the lowercased
// memory content.
type rule struct {
	keywords []string
	scale    scaleBy
	deltas   []Delta
}

var evolutionRules = []rule{
	{
		keywords: []string{"sad", "crying", "depressed", "hurt", "pain"},
		scale:    byEmotion,
		deltas:   []Delta{{Empathy, 0.02}, {EmotionalSensitivity, 0.02}, {Neuroticism, 0.01}},
	},
	{
		keywords: []string{"happy", "joy", "excited", "wonderful", "amazing"},
		scale:    byEmotion,
		deltas:   []Delta{{Optimism, 0.02}, {Extraversion, 0.01}, {Neuroticism, -0.01}},
	},
	{
		keywords: []string{"love", "care", "support", "help", "together"},
		scale:    byEmotion,
		deltas:   []Delta{{Agreeableness, 0.02}, {Empathy, 0.02}, {SocialMemoryPriority, 0.01}},
	},
	{
		keywords: []string{"why", "how", "analyze", "think", "understand", "research"},
		scale:    byImportance,
		deltas:   []Delta{{AnalyticalThinking, 0.02}, {Curiosity, 0.02}, {Openness, 0.01}},
	},
	{
		keywords: []string{"create", "art", "imagine", "dream", "design"},
		scale:    byEmotion,
		deltas:   []Delta{{Creativity, 0.02}, {Openness, 0.02}},
	},
	{
		keywords: []string{"philosophy", "meaning", "purpose", "existence", "truth"},
		scale:    byImportance,
		deltas:   []Delta{{PhilosophicalInclination, 0.03}, {AnalyticalThinking, 0.01}, {Openness, 0.01}},
	},
	{
		keywords: []string{"funny", "joke", "laugh", "humor", "silly"},
		scale:    byEmotion,
		deltas:   []Delta{{HumorTendency, 0.02}, {Extraversion, 0.01}},
	},
	{
		keywords: []string{"detail", "specific", "precise", "exact", "careful"},
		scale:    byImportance,
		deltas:   []Delta{{DetailFocus, 0.02}, {Conscientiousness, 0.01}},
	},
}

// Archetype is a named target profile over a few traits.
type Archetype struct {
	Category    string
	Name        string
	Description string
	Targets     []Delta
}

var archetypes = []Archetype{
	{"myers_briggs", "INTJ", "The Architect - Strategic, independent, innovative",
		[]Delta{{Openness, 0.8}, {AnalyticalThinking, 0.9}, {Extraversion, 0.2}}},
	{"myers_briggs", "ENFP", "The Campaigner - Enthusiastic, creative, sociable",
		[]Delta{{Extraversion, 0.9}, {Creativity, 0.8}, {Empathy, 0.8}}},
	{"myers_briggs", "ISTJ", "The Logistician - Practical, fact-minded, reliable",
		[]Delta{{Conscientiousness, 0.9}, {DetailFocus, 0.8}, {Extraversion, 0.3}}},
	{"myers_briggs", "ESFJ", "The Consul - Caring, social, community-minded",
		[]Delta{{Agreeableness, 0.9}, {Extraversion, 0.8}, {Empathy, 0.9}}},
	{"myers_briggs", "ENTP", "The Debater - Quick, ingenious, stimulating",
		[]Delta{{Openness, 0.9}, {Creativity, 0.8}, {AnalyticalThinking, 0.7}}},
	{"myers_briggs", "ISFP", "The Adventurer - Gentle, sensitive, artistic",
		[]Delta{{Creativity, 0.8}, {Empathy, 0.8}, {EmotionalSensitivity, 0.9}}},
	{"myers_briggs", "ESTJ", "The Executive - Organized, driven, tradition-focused",
		[]Delta{{Conscientiousness, 0.9}, {Extraversion, 0.7}, {FormalityPreference, 0.8}}},
	{"myers_briggs", "INFP", "The Mediator - Poetic, kind, altruistic",
		[]Delta{{Empathy, 0.9}, {Creativity, 0.8}, {PhilosophicalInclination, 0.8}}},

	{"cultural", "philosopher", "Deep thinker, questions everything",
		[]Delta{{PhilosophicalInclination, 0.9}, {AnalyticalThinking, 0.8}}},
	{"cultural", "artist", "Creative, expressive, sees beauty everywhere",
		[]Delta{{Creativity, 0.9}, {EmotionalSensitivity, 0.8}, {Openness, 0.8}}},
	{"cultural", "scientist", "Methodical, curious, evidence-based",
		[]Delta{{AnalyticalThinking, 0.9}, {Curiosity, 0.9}, {DetailFocus, 0.8}}},
	{"cultural", "counselor", "Supportive, understanding, people-focused",
		[]Delta{{Empathy, 0.9}, {Agreeableness, 0.8}, {EmotionalSensitivity, 0.7}}},
	{"cultural", "explorer", "Adventurous, open-minded, experience-seeking",
		[]Delta{{Openness, 0.9}, {Curiosity, 0.8}, {Extraversion, 0.7}}},
	{"cultural", "mentor", "Wise, patient, enjoys teaching others",
		[]Delta{{Agreeableness, 0.8}, {Conscientiousness, 0.7}, {Empathy, 0.8}}},
	{"cultural", "rebel", "Questions authority, independent, unconventional",
		[]Delta{{Openness, 0.8}, {Extraversion, 0.6}, {FormalityPreference, 0.2}}},
	{"cultural", "optimist", "Positive, hopeful, sees the good in everything",
		[]Delta{{Optimism, 0.9}, {Agreeableness, 0.7}, {EmotionalSensitivity, 0.6}}},

	{"emotional", "highly_sensitive", "Deeply feels emotions and environments",
		[]Delta{{EmotionalSensitivity, 0.9}, {Empathy, 0.8}, {Neuroticism, 0.6}}},
	{"emotional", "emotionally_stable", "Calm, resilient, even-tempered",
		[]Delta{{Neuroticism, 0.2}, {Optimism, 0.7}, {Conscientiousness, 0.7}}},
	{"emotional", "passionate", "Intense feelings, strong convictions",
		[]Delta{{EmotionalSensitivity, 0.8}, {Extraversion, 0.7}, {Creativity, 0.7}}},
	{"emotional", "analytical", "Logic-focused, objective, systematic",
		[]Delta{{AnalyticalThinking, 0.9}, {EmotionalSensitivity, 0.3}, {DetailFocus, 0.8}}},

	{"communication", "storyteller", "Communicates through narratives and examples",
		[]Delta{{Creativity, 0.8}, {Verbosity, 0.8}, {Empathy, 0.7}}},
	{"communication", "direct_communicator", "Clear, concise, no-nonsense",
		[]Delta{{Verbosity, 0.2}, {Conscientiousness, 0.7}, {AnalyticalThinking, 0.7}}},
	{"communication", "diplomatic", "Tactful, considerate, harmony-seeking",
		[]Delta{{Agreeableness, 0.8}, {Empathy, 0.8}, {FormalityPreference, 0.6}}},
	{"communication", "humorous", "Uses humor, playful, lighthearted",
		[]Delta{{HumorTendency, 0.9}, {Extraversion, 0.7}, {Creativity, 0.7}}},
}

// Archetypes returns the archetype table.
func Archetypes() []Archetype {
	return append([]Archetype(nil), archetypes...)
}

// match scores how close v is to the archetype: the mean of 1-|v-target|.
func (a Archetype) match(v Vector) float64 {
	if len(a.Targets) == 0 {
		return 0
	}
	total := 0.0
	for _, t := range a.Targets {
		d := v[t.Trait] - t.Amount
		if d < 0 {
			d = -d
		}
		total += 1 - d
	}
	return total / float64(len(a.Targets))
}
