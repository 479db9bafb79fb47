package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/lazypower/persona/internal/config"
	"github.com/lazypower/persona/internal/engine"
	"github.com/lazypower/persona/internal/llm"
	"github.com/lazypower/persona/internal/logging"
	"github.com/lazypower/persona/internal/metrics"
	"github.com/lazypower/persona/internal/store"
)

// app is everything a command needs: config, logger, database and engine.
type app struct {
	cfg *config.Config
	log *logging.Logger
	db  *store.DB
	eng *engine.Engine
}

// openApp loads config, opens the database and restores the persona.
// Structured logs go to logOut.
func openApp(logOut io.Writer, m *metrics.Metrics) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(logOut, cfg.Log)

	path := dbPath
	if path == "" {
		path = cfg.Database.Path
	}
	if path == "" {
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), chat disabled\n", err)
		client = &llm.MockClient{Err: err}
	}

	eng, err := engine.New(db, client, engine.Options{
		Name:          cfg.Persona.Name,
		Model:         modelName(cfg.LLM),
		AutosaveEvery: cfg.Persona.AutosaveEvery,
		SleepHour:     cfg.Persona.SleepHour,
		WakeHour:      cfg.Persona.WakeHour,
		Seed:          cfg.Persona.Seed,
		Log:           log.Logger,
		Metrics:       m,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("database opened", "path", path)
	return &app{cfg: cfg, log: log, db: db, eng: eng}, nil
}

// close stops background work and closes the database without saving.
func (a *app) close() {
	a.eng.Stop()
	if err := a.eng.EndSession(); err != nil {
		a.log.Warn("end session failed", "err", err)
	}
	a.db.Close()
}

// saveAndClose persists the persona before closing.
func (a *app) saveAndClose() error {
	a.eng.Stop()
	err := a.eng.Save()
	a.close()
	return err
}

func modelName(cfg config.LLMConfig) string {
	if cfg.Provider == "ollama" {
		return cfg.OllamaModel
	}
	return cfg.Model
}
