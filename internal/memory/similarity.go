package memory

import "strings"

// wordSet tokenizes s into its set of lowercase whitespace-separated words.
func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlap counts the words present in both sets.
func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	inter := overlap(a, b)
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Similarity is the lexical Jaccard similarity of two texts.
func Similarity(a, b string) float64 {
	return jaccard(wordSet(a), wordSet(b))
}
