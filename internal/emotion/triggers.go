package emotion

import "strings"

// trigger fires when any keyword occurs as a substring of the lowercased
// turn. A later trigger overwrites an earlier one's change to the same
// emotion.
type trigger struct {
	name     string
	keywords []string
	changes  []Change
}

var triggers = []trigger{
	{
		name:     "positive",
		keywords: []string{"happy", "joy", "excited", "wonderful", "amazing", "love", "great", "fantastic"},
		changes:  []Change{{Happiness, 0.1}, {Excitement, 0.08}, {Contentment, 0.06}, {Sadness, -0.05}, {Anxiety, -0.03}},
	},
	{
		name:     "negative",
		keywords: []string{"sad", "depressed", "hurt", "pain", "terrible", "awful", "hate"},
		changes:  []Change{{Sadness, 0.1}, {Happiness, -0.05}, {Contentment, -0.04}, {Anxiety, 0.03}},
	},
	{
		name:     "anxiety",
		keywords: []string{"worried", "anxious", "stressed", "nervous", "fear", "scared"},
		changes:  []Change{{Anxiety, 0.12}, {Calm, -0.08}, {Confidence, -0.04}},
	},
	{
		name:     "anger",
		keywords: []string{"angry", "mad", "furious", "annoyed", "irritated"},
		changes:  []Change{{Anger, 0.1}, {Frustration, 0.08}, {Calm, -0.06}},
	},
	{
		name:     "curiosity",
		keywords: []string{"why", "how", "what", "interesting", "curious", "wonder", "learn"},
		changes:  []Change{{Curiosity, 0.08}, {Excitement, 0.04}, {Loneliness, -0.02}},
	},
	{
		name:     "social",
		keywords: []string{"friend", "together", "share", "understand", "connect"},
		changes:  []Change{{Empathy, 0.06}, {Loneliness, -0.08}, {Contentment, 0.05}},
	},
	{
		name:     "calm",
		keywords: []string{"calm", "peaceful", "relax", "serene", "quiet"},
		changes:  []Change{{Calm, 0.1}, {Anxiety, -0.08}, {Contentment, 0.06}},
	},
}

// changeSet keeps the insertion order of first writes so triggers report
// their changes in a stable order.
type changeSet struct {
	order  []Emotion
	amount [NumEmotions]float64
	set    [NumEmotions]bool
}

func (c *changeSet) put(e Emotion, amount float64) {
	if !c.set[e] {
		c.order = append(c.order, e)
		c.set[e] = true
	}
	c.amount[e] = amount
}

// add accumulates onto any existing change.
func (c *changeSet) add(e Emotion, amount float64) {
	c.put(e, c.amount[e]+amount)
}

func (c *changeSet) changes() []Change {
	out := make([]Change, 0, len(c.order))
	for _, e := range c.order {
		out = append(out, Change{Emotion: e, Amount: c.amount[e]})
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
