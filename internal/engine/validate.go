package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// minLearningChars is the shortest extracted statement worth storing.
	minLearningChars = 10
	// maxLearnings caps how many statements one exchange can produce.
	maxLearnings = 3

	minFallbackInput    = 5
	minFallbackResponse = 20

	// Responses longer than this are remembered by their opening and closing.
	maxQuoteRunes = 150
	quoteEdge     = 75
)

type floatSource interface {
	Float64() float64
}

// parseLearnings splits an extraction response into storable statements.
// Code fences and list markers are stripped; short lines are dropped.
func parseLearnings(content string) []string {
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		line = stripListMarker(line)
		if runeLen(line) <= minLearningChars {
			continue
		}
		out = append(out, line)
		if len(out) == maxLearnings {
			break
		}
	}
	return out
}

// stripListMarker removes a leading "- ", "* ", "• " or "1. " marker.
func stripListMarker(line string) string {
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):])
		}
	}
	digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && digits < len(line)-1 && (line[digits] == '.' || line[digits] == ')') && line[digits+1] == ' ' {
		return strings.TrimSpace(line[digits+2:])
	}
	return line
}

// scoreLearning assigns importance and emotion to an extracted statement.
// Draw order: importance, emotion.
func scoreLearning(line string, src floatSource) (importance, emotion float64) {
	importance = 0.3 + src.Float64()*0.4
	emotion = 0.2 + src.Float64()*0.3

	if runeLen(line) > 50 {
		importance += 0.1
	}
	if strings.Count(line, ",") > 2 || strings.Contains(line, ";") {
		importance += 0.1
	}
	if strings.ContainsAny(line, "!?") {
		emotion += 0.2
	}
	return clampWeight(importance), clampWeight(emotion)
}

// scoreUtterance weighs raw user input. Early interactions and questions
// about the persona count for more.
func scoreUtterance(raw, trimmed string, interactions int, src floatSource) (importance, emotion float64) {
	importance = 0.2 + min(0.3, float64(runeLen(trimmed))/200)
	emotion = 0.2 + src.Float64()*0.3

	exclamations := float64(strings.Count(raw, "!")) + float64(strings.Count(raw, "?"))*0.5
	if exclamations > 0 {
		emotion += min(0.3, exclamations*0.15)
	}
	if capsRatio(raw) > 0.3 {
		emotion += 0.2
	}
	if len(strings.Fields(raw)) < 3 {
		importance += 0.1
	}
	if interactions < 10 {
		importance += 0.2
	}
	if strings.Contains(raw, "?") {
		lower := strings.ToLower(raw)
		for _, w := range []string{"you", "your", "are"} {
			if strings.Contains(lower, w) {
				importance += 0.15
				break
			}
		}
	}
	return clampWeight(importance), clampWeight(emotion)
}

// selfQuote renders the persona's own reply as a memory.
func selfQuote(response string) string {
	r := []rune(response)
	if len(r) > maxQuoteRunes {
		return "I said: " + string(r[:quoteEdge]) + "..." + string(r[len(r)-quoteEdge:])
	}
	return "I said: " + strings.TrimSpace(response)
}

func capsRatio(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	upper := 0
	for _, r := range s {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(n)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func clampWeight(v float64) float64 {
	return max(0.1, min(1.0, v))
}
