package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/lazypower/persona/internal/engine"
	"github.com/lazypower/persona/internal/store"
)

// Server is the persona HTTP API server.
type Server struct {
	engine  *engine.Engine
	db      *store.DB
	chat    *rate.Limiter
	router  chi.Router
	version string
	started time.Time
}

// Options tunes the server. A zero ChatPerSecond disables chat rate limiting.
type Options struct {
	ChatPerSecond float64
	ChatBurst     int
}

// New creates a new Server around eng.
func New(eng *engine.Engine, version string, opts Options) *Server {
	s := &Server{
		engine:  eng,
		db:      eng.DB,
		chat:    rate.NewLimiter(rate.Inf, 0),
		version: version,
		started: time.Now(),
	}
	if opts.ChatPerSecond > 0 {
		burst := opts.ChatBurst
		if burst < 1 {
			burst = 1
		}
		s.chat = rate.NewLimiter(rate.Limit(opts.ChatPerSecond), burst)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)

	r.Handle("/metrics", s.engine.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.With(s.limitChat).Post("/chat", s.handleChat)

		r.Get("/memories", s.handleListMemories)
		r.Post("/memories", s.handleRemember)
		r.Get("/memories/{id}", s.handleGetMemory)
		r.Get("/recall", s.handleRecall)
		r.Post("/seed", s.handleSeed)

		r.Post("/day", s.handleAdvanceDay)
		r.Post("/sleep", s.handleSleep)
		r.Post("/wake", s.handleWake)
		r.Post("/ghost", s.handleGhost)

		r.Get("/stats", s.handleStats)
		r.Get("/status", s.handleStatus)
		r.Get("/context", s.handleGetContext)
		r.Get("/turns", s.handleTurns)
		r.Get("/events", s.handleEvents)
		r.Get("/sessions", s.handleSessions)
		r.Get("/report", s.handleReport)
	})

	s.router = r
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.engine.Metrics.HTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

// limitChat rejects chat requests beyond the configured rate. Every chat
// costs an LLM call.
func (s *Server) limitChat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.chat.Allow() {
			writeError(w, http.StatusTooManyRequests, "chat rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"persona": s.engine.Name(),
		"mode":    s.engine.Clock.Mode(),
		"db":      false,
	}
	if s.db != nil {
		body["db"] = s.db.Ping() == nil
		body["db_path"] = s.db.Path
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
