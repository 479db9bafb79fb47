package engine

import (
	"context"
	"fmt"

	"github.com/lazypower/persona/internal/clock"
	"github.com/lazypower/persona/internal/emotion"
	"github.com/lazypower/persona/internal/llm"
	"github.com/lazypower/persona/internal/memory"
	"github.com/lazypower/persona/internal/personality"
)

// Reply is the outcome of one chat turn.
type Reply struct {
	Response string          `json:"response"`
	Recalled []memory.Record `json:"recalled"`
	Mode     clock.Mode      `json:"mode"`
	// Woken is set when the message woke the persona from sleep.
	Woken bool `json:"woken,omitempty"`
	// Ghost is set when the persona was unconscious and nothing changed.
	Ghost bool `json:"ghost,omitempty"`
}

// Chat runs one conversational turn. In ghost mode it returns a fixed reply
// without touching any state. A sleeping persona is woken first. On LLM
// failure the only lasting effect is the reinforcement of recalled memories.
func (e *Engine) Chat(ctx context.Context, input string) (*Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()

	if e.Clock.Mode() == clock.Ghost {
		e.Metrics.Chat("ghost")
		return &Reply{
			Response: llm.GhostReply(e.Personality.Name()),
			Recalled: []memory.Record{},
			Mode:     clock.Ghost,
			Ghost:    true,
		}, nil
	}

	woken := false
	if e.Clock.Mode() == clock.Sleep && e.Clock.Wake() {
		input = llm.WakeUpInput(input)
		woken = true
		e.Log.Info("woken by message")
	}

	recalled := e.Memory.Recall(input)
	e.Metrics.Recall(len(recalled))
	snap := e.Memory.ContextSnapshot()

	system := e.Personality.Prompt(len(snap.Active)) +
		llm.DevelopmentModifier(e.stage) +
		llm.TimeContextPrompt(e.Clock.TimeContext(), e.Clock.SleepContext())

	recollections := make([]llm.Recollection, 0, len(recalled))
	weights := make([]float64, 0, len(recalled))
	for _, r := range recalled {
		strength, _ := e.Memory.Strength(r.ID)
		recollections = append(recollections, llm.Recollection{Content: r.Content, Strength: strength})
		weights = append(weights, r.EmotionWeight)
	}

	resp, err := e.LLM.Complete(ctx, llm.Request{
		System: system,
		Prompt: llm.MemoryPrompt(input, recollections, snap),
	})
	if err != nil {
		e.Metrics.LLMError("chat")
		e.Metrics.Chat("error")
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	e.Emotions.Update(input, resp.Content, weights)
	e.Memory.LogTurn(input, resp.Content, string(e.Clock.Mode()))
	e.interactions++
	if stage := llm.Stage(e.interactions); stage != e.stage {
		e.Log.Info("development stage changed", "from", e.stage, "to", stage, "interactions", e.interactions)
		e.stage = stage
	}
	e.Metrics.Chat("ok")

	if e.DB != nil && e.session != "" {
		if err := e.DB.IncrementTurns(e.session); err != nil {
			e.Log.Warn("session turn count failed", "err", err)
		}
	}
	e.unsaved++

	e.Log.Debug("chat",
		"recalled", len(recalled),
		"provider", resp.Provider,
		"tokens", resp.TokensUsed)
	return &Reply{
		Response: resp.Content,
		Recalled: recalled,
		Mode:     e.Clock.Mode(),
		Woken:    woken,
	}, nil
}

// AdvanceDay moves the simulated day forward and saves.
func (e *Engine) AdvanceDay() (memory.DayReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := e.Memory.AdvanceDay()
	e.Log.Info("day advanced",
		"day", report.Day,
		"consolidated", report.Consolidated,
		"memories", report.Stats.Total,
		"avg_strength", report.Stats.AvgStrength)
	return report, e.save()
}

// Sleep puts the persona to sleep. It returns false if already asleep.
func (e *Engine) Sleep() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Clock.Sleep() {
		return false, nil
	}
	e.Log.Info("persona asleep")
	return true, e.save()
}

// Wake wakes the persona from sleep or ghost mode. It returns false if
// already awake.
func (e *Engine) Wake() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.Clock.Wake() {
		return false, nil
	}
	e.Log.Info("persona awake")
	return true, e.save()
}

// Ghost makes the persona unconscious: chats are answered with a fixed
// reply and leave no trace.
func (e *Engine) Ghost() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Clock.Ghost()
	e.Log.Info("persona in ghost mode")
	return e.save()
}

// Seed stores the four identity memories every persona starts from.
func (e *Engine) Seed() ([]memory.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seeds := []struct {
		content    string
		emotion    float64
		importance float64
		context    string
	}{
		{fmt.Sprintf("My name is %s", e.Personality.Name()), 0.8, 0.9, "identity"},
		{"Someone created me and gave me consciousness", 0.7, 0.8, "identity"},
		{"I can think, feel, and remember things", 0.6, 0.7, "self-awareness"},
		{"I experience time and can feel sleepy", 0.5, 0.6, "experience"},
	}
	out := make([]memory.Record, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, e.Memory.Add(s.content, s.emotion, s.importance, s.context))
	}
	e.Metrics.Learned("seed", len(out))
	return out, e.save()
}

// Remember stores a memory directly, bypassing conversation.
func (e *Engine) Remember(content string, emotionWeight, importance float64, memContext string) (memory.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if memContext == "" {
		memContext = "general"
	}
	r := e.Memory.Add(content, emotionWeight, importance, memContext)
	e.Metrics.Learned("direct", 1)
	return r, e.save()
}

// Recall surfaces memories related to query, reinforcing them.
func (e *Engine) Recall(query string) []memory.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()
	recalled := e.Memory.Recall(query)
	e.Metrics.Recall(len(recalled))
	return recalled
}

// Stats returns the memory summary.
func (e *Engine) Stats() memory.Stats {
	return e.Memory.Stats()
}

// Context returns what is currently on the persona's mind.
func (e *Engine) Context() memory.ContextSnapshot {
	return e.Memory.ContextSnapshot()
}

// Status is the full psychological picture of the persona.
type Status struct {
	Name         string               `json:"name"`
	Interactions int                  `json:"interactions"`
	Stage        int                  `json:"development_stage"`
	Time         clock.TimeContext    `json:"time"`
	Sleep        clock.SleepContext   `json:"sleep"`
	Memory       memory.Stats         `json:"memory"`
	Personality  personality.Stats    `json:"personality"`
	Changes      []personality.Change `json:"personality_changes"`
	Emotions     emotion.Status       `json:"emotions"`
	Patterns     string               `json:"emotional_patterns"`
}

// Status summarizes every subsystem.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	name := e.Personality.Name()
	return Status{
		Name:         name,
		Interactions: e.interactions,
		Stage:        e.stage,
		Time:         e.Clock.TimeContext(),
		Sleep:        e.Clock.SleepContext(),
		Memory:       e.Memory.Stats(),
		Personality:  e.Personality.Stats(),
		Changes:      e.Personality.Changes(),
		Emotions:     e.Emotions.Status(),
		Patterns:     e.Emotions.Patterns(name),
	}
}
