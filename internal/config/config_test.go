package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Default() invalid: %v", err)
	}
	if got := cfg.ListenAddr(); got != "127.0.0.1:37778" {
		t.Errorf("ListenAddr = %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Persona != want.Persona {
		t.Errorf("Persona = %+v, want %+v", cfg.Persona, want.Persona)
	}
	if cfg.LLM != want.LLM {
		t.Errorf("LLM = %+v, want %+v", cfg.LLM, want.LLM)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "persona.yaml", `
persona:
  name: Mika
  day_interval: 10m
  seed: 42
llm:
  provider: anthropic
  model: claude-haiku-4-5
log:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Persona.Name != "Mika" {
		t.Errorf("Name = %q, want Mika", cfg.Persona.Name)
	}
	if cfg.Persona.DayInterval != 10*time.Minute {
		t.Errorf("DayInterval = %v, want 10m", cfg.Persona.DayInterval)
	}
	if cfg.Persona.Seed != 42 {
		t.Errorf("Seed = %d, want 42", cfg.Persona.Seed)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Model != "claude-haiku-4-5" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	// Untouched keys keep their defaults.
	if cfg.Persona.SleepHour != 22 || cfg.Server.Port != 37778 {
		t.Errorf("defaults lost: sleep_hour=%d port=%d", cfg.Persona.SleepHour, cfg.Server.Port)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "persona.json", `{"server": {"port": 9000}, "ratelimit": {"burst": 10}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.RateLimit.Burst != 10 {
		t.Errorf("port=%d burst=%d", cfg.Server.Port, cfg.RateLimit.Burst)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "persona.yaml", "persona:\n  name: Mika\n")
	t.Setenv("PERSONA_PERSONA_NAME", "Rei")
	t.Setenv("PERSONA_LLM_OLLAMA_MODEL", "qwen2.5")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Persona.Name != "Rei" {
		t.Errorf("Name = %q, want env to win", cfg.Persona.Name)
	}
	if cfg.LLM.OllamaModel != "qwen2.5" {
		t.Errorf("OllamaModel = %q", cfg.LLM.OllamaModel)
	}
	if cfg.LLM.AnthropicKey != "sk-test" {
		t.Errorf("AnthropicKey = %q", cfg.LLM.AnthropicKey)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml")},
		{"unsupported format", writeFile(t, "persona.toml", "x = 1")},
		{"malformed yaml", writeFile(t, "bad.yaml", "persona: [")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	path := writeFile(t, "persona.yaml", `
persona:
  name: ""
  sleep_hour: 30
llm:
  provider: gpt
`)
	_, err := Load(path)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	fields := make(map[string]bool)
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	for _, f := range []string{"Config.Persona.Name", "Config.Persona.SleepHour", "Config.LLM.Provider"} {
		if !fields[f] {
			t.Errorf("missing error for %s in %v", f, err)
		}
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestWatchReloads(t *testing.T) {
	path := writeFile(t, "persona.yaml", "log:\n  level: info\n")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 10*time.Millisecond, log, func(c *Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-got:
		if c.Log.Level != "debug" {
			t.Errorf("Level = %q, want debug", c.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}

func TestWatchRequiresPath(t *testing.T) {
	if err := Watch(context.Background(), "", 0, slog.Default(), func(*Config) {}); err == nil {
		t.Error("expected error for empty path")
	}
}
