package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment overrides:
	// PERSONA_LLM_OLLAMA_MODEL sets llm.ollama_model.
	EnvPrefix = "PERSONA_"
	delim     = "."
)

// Load reads configuration with increasing priority: defaults, the file at
// path (YAML or JSON, skipped when path is empty), then PERSONA_* env vars.
// ANTHROPIC_API_KEY fills llm.anthropic_key when it is otherwise unset.
func Load(path string) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(defaults(), delim), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, delim, envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "mapstructure"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", path)
	}
}

// envKey maps PERSONA_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", delim, 1)
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"server.bind":               d.Server.Bind,
		"server.port":               d.Server.Port,
		"database.path":             d.Database.Path,
		"llm.provider":              d.LLM.Provider,
		"llm.model":                 d.LLM.Model,
		"llm.ollama_url":            d.LLM.OllamaURL,
		"llm.ollama_model":          d.LLM.OllamaModel,
		"llm.anthropic_key":         d.LLM.AnthropicKey,
		"llm.max_tokens":            d.LLM.MaxTokens,
		"llm.temperature":           d.LLM.Temperature,
		"persona.name":              d.Persona.Name,
		"persona.seed":              d.Persona.Seed,
		"persona.autosave_every":    d.Persona.AutosaveEvery,
		"persona.day_interval":      d.Persona.DayInterval.String(),
		"persona.sleep_hour":        d.Persona.SleepHour,
		"persona.wake_hour":         d.Persona.WakeHour,
		"log.level":                 d.Log.Level,
		"log.format":                d.Log.Format,
		"ratelimit.chat_per_second": d.RateLimit.ChatPerSecond,
		"ratelimit.burst":           d.RateLimit.Burst,
	}
}
