package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/persona/internal/memory"
)

// memoryJSON is a record as served to clients, with its current strength.
type memoryJSON struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	Context     string  `json:"context"`
	Strength    float64 `json:"strength"`
	Emotion     float64 `json:"emotion_weight"`
	Importance  float64 `json:"importance"`
	AccessCount int     `json:"access_count"`
	Fingerprint string  `json:"fingerprint"`
}

func (s *Server) toJSON(r memory.Record) memoryJSON {
	strength, _ := s.engine.Memory.Strength(r.ID)
	return memoryJSON{
		ID:          r.ID,
		Content:     r.Content,
		Context:     r.Context,
		Strength:    strength,
		Emotion:     r.EmotionWeight,
		Importance:  r.Importance,
		AccessCount: r.AccessCount,
		Fingerprint: r.Fingerprint,
	}
}

func (s *Server) toJSONs(recs []memory.Record) []memoryJSON {
	out := make([]memoryJSON, len(recs))
	for i, r := range recs {
		out[i] = s.toJSON(r)
	}
	return out
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	reply, err := s.engine.Chat(r.Context(), req.Message)
	if err != nil {
		s.engine.Log.Error("chat failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	learned := 0
	if !reply.Ghost {
		recs, err := s.engine.Learn(r.Context(), req.Message, reply.Response)
		if err != nil {
			s.engine.Log.Error("learn save failed", "err", err)
		}
		learned = len(recs)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response": reply.Response,
		"recalled": s.toJSONs(reply.Recalled),
		"learned":  learned,
		"mode":     reply.Mode,
		"woken":    reply.Woken,
		"ghost":    reply.Ghost,
	})
}

func (s *Server) handleRemember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    string   `json:"content"`
		Emotion    *float64 `json:"emotion"`
		Importance *float64 `json:"importance"`
		Context    string   `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}
	emotion, importance := 0.5, 0.5
	if req.Emotion != nil {
		emotion = *req.Emotion
	}
	if req.Importance != nil {
		importance = *req.Importance
	}
	if emotion < 0 || emotion > 1 || importance < 0 || importance > 1 {
		writeError(w, http.StatusBadRequest, "emotion and importance must be within [0,1]")
		return
	}

	rec, err := s.engine.Remember(req.Content, emotion, importance, req.Context)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.toJSON(rec))
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	filter := r.URL.Query().Get("context")

	var out []memoryJSON
	for _, rec := range s.engine.Memory.Records() {
		if filter != "" && rec.Context != filter {
			continue
		}
		out = append(out, s.toJSON(rec))
	}
	if r.URL.Query().Get("sort") == "strength" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	}
	total := len(out)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []memoryJSON{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(out),
		"total":    total,
		"memories": out,
	})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.engine.Memory.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"memory":           s.toJSON(rec),
		"original_content": rec.OriginalContent,
		"access_history":   rec.AccessHistory,
		"strength_history": rec.StrengthHistory,
		"created_at":       rec.CreatedAt,
	})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter required")
		return
	}
	recalled := s.engine.Recall(query)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":    query,
		"count":    len(recalled),
		"memories": s.toJSONs(recalled),
	})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	recs, err := s.engine.Seed()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"count":    len(recs),
		"memories": s.toJSONs(recs),
	})
}

func (s *Server) handleAdvanceDay(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.AdvanceDay()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	changed, err := s.engine.Sleep()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "mode": s.engine.Clock.Mode()})
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	changed, err := s.engine.Wake()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "mode": s.engine.Clock.Mode()})
}

func (s *Server) handleGhost(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ghost(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": true, "mode": s.engine.Clock.Mode()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	turns := s.engine.Memory.Turns()
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(turns),
		"turns": turns,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "event log requires a database")
		return
	}
	kind := memory.EventKind(r.URL.Query().Get("kind"))
	events, err := s.db.GetRecentEvents(kind, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	counts, err := s.db.EventCounts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []memory.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"counts": counts,
		"events": events,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions require a database")
		return
	}
	sessions, err := s.db.GetRecentSessions(queryInt(r, "limit", 10))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type sessionJSON struct {
		SessionID string `json:"session_id"`
		Surface   string `json:"surface"`
		Status    string `json:"status"`
		StartedAt int64  `json:"started_at"`
		EndedAt   *int64 `json:"ended_at,omitempty"`
		Turns     int    `json:"turns"`
	}
	out := make([]sessionJSON, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionJSON{sess.SessionID, sess.Surface, sess.Status, sess.StartedAt, sess.EndedAt, sess.TurnCount}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "report requires a database")
		return
	}
	report, err := s.db.Report()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
