package server

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/persona/internal/memory"
)

// maxContextItems caps how many thoughts the rendered context lists.
const maxContextItems = 15

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap,
		"context":  s.buildContext(snap),
	})
}

// buildContext renders what is on the persona's mind as markdown, for
// injection into another agent's prompt.
func (s *Server) buildContext(snap memory.ContextSnapshot) string {
	var b strings.Builder
	status := s.engine.Status()

	fmt.Fprintf(&b, "<context>\n## %s: Inner State\n", status.Name)
	fmt.Fprintf(&b, "\nIt is %s %s, day %d of memory. %s is %s, %s.\n",
		status.Time.Period, status.Time.Clock, snap.Days, status.Name, status.Time.Mode, status.Emotions.Description)
	fmt.Fprintf(&b, "Personality: %s.\n", status.Personality.Dominant.Type)

	accessed := make(map[string]int, len(snap.Active))
	for _, rec := range s.engine.Memory.Records() {
		accessed[rec.ID] = rec.AccessCount
	}
	active := append([]memory.ActiveMemory(nil), snap.Active...)
	sort.SliceStable(active, func(i, j int) bool {
		return thoughtScore(active[i], accessed[active[i].ID]) > thoughtScore(active[j], accessed[active[j].ID])
	})
	if len(active) > maxContextItems {
		active = active[:maxContextItems]
	}

	if len(active) > 0 {
		b.WriteString("\n### On Their Mind\n")
		for _, m := range active {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Context, m.Content)
		}
	}
	if snap.WeakCount > 0 {
		fmt.Fprintf(&b, "\n%d memories have grown faint.\n", snap.WeakCount)
	}

	if s.db != nil {
		sessions, err := s.db.GetRecentSessions(5)
		if err == nil && len(sessions) > 0 {
			b.WriteString("\n### Recent Sessions\n")
			for _, sess := range sessions {
				ts := time.UnixMilli(sess.StartedAt).Format("2006-01-02 15:04")
				fmt.Fprintf(&b, "- [%s] %s: %s (%d turns)\n", ts, sess.Surface, sess.Status, sess.TurnCount)
			}
		}
	}

	b.WriteString("</context>")
	return b.String()
}

// thoughtScore ranks an active memory for context. Strength weighted by how
// often it has been recalled, with diminishing returns.
func thoughtScore(m memory.ActiveMemory, accessCount int) float64 {
	boost := 1.0
	if accessCount > 0 {
		boost = 1.0 + math.Log2(float64(accessCount))
	}
	return m.Strength * boost
}
