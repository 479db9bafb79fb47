package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/persona/internal/llm"
	"github.com/lazypower/persona/internal/memory"
)

// learnTimeout bounds the extraction call so a slow model can't stall a turn.
const learnTimeout = 120 * time.Second

// Learn turns a finished exchange into memories. It asks the LLM for one or
// two statements worth keeping; if that fails or yields nothing, the exchange
// itself is stored. Learning never fails because of the LLM; the returned
// error reports persistence problems only.
func (e *Engine) Learn(ctx context.Context, input, response string) ([]memory.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.flush()

	stored, err := e.learnFromLLM(ctx, input, response)
	if err != nil {
		e.Metrics.LLMError("learn")
		e.Log.Warn("learning offline, storing exchange directly", "err", err)
	}
	if len(stored) > 0 {
		e.Metrics.Learned("llm", len(stored))
	} else {
		stored = e.learnFallback(input, response)
		e.Metrics.Learned("fallback", len(stored))
	}

	if len(stored) > 0 {
		e.Log.Debug("learned", "memories", len(stored))
	}
	return stored, e.autosave()
}

func (e *Engine) learnFromLLM(ctx context.Context, input, response string) ([]memory.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, learnTimeout)
	defer cancel()

	resp, err := e.LLM.Complete(ctx, llm.Request{Prompt: llm.LearningPrompt(input, response)})
	if err != nil {
		return nil, fmt.Errorf("learning completion: %w", err)
	}

	var stored []memory.Record
	for _, line := range parseLearnings(resp.Content) {
		importance, emotionWeight := scoreLearning(line, e.src)
		r := e.Memory.Add(line, emotionWeight, importance, "conversation")
		stored = append(stored, r)

		deltas := e.Personality.Evolve(r.Content, r.EmotionWeight, r.Importance)
		if len(deltas) > 0 {
			e.Log.Debug("personality evolved", "memory", r.ID, "traits", len(deltas))
		}
	}
	return stored, nil
}

// learnFallback stores what was said, and what the persona said back, with
// importance and emotion read off the surface of the text.
func (e *Engine) learnFallback(input, response string) []memory.Record {
	trimmed := strings.TrimSpace(input)
	if runeLen(trimmed) <= minFallbackInput {
		return nil
	}
	importance, emotionWeight := scoreUtterance(input, trimmed, e.interactions, e.src)

	var stored []memory.Record
	stored = append(stored, e.Memory.Add("Someone said to me: "+trimmed, emotionWeight, importance, "conversation"))

	if runeLen(strings.TrimSpace(response)) > minFallbackResponse {
		ownImportance := importance*0.6 + e.src.Float64()*0.2
		ownEmotion := emotionWeight*0.7 + e.src.Float64()*0.2
		stored = append(stored, e.Memory.Add(selfQuote(response), ownEmotion, ownImportance, "self-reflection"))
	}
	return stored
}
