package config

import (
	"fmt"
	"time"
)

// Config holds all persona configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Persona   PersonaConfig   `mapstructure:"persona"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"` // empty: store.DefaultDBPath()
}

type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=ollama anthropic claude-cli"`
	// Model is used by the anthropic and claude-cli providers.
	Model        string  `mapstructure:"model"`
	OllamaURL    string  `mapstructure:"ollama_url" validate:"omitempty,url"`
	OllamaModel  string  `mapstructure:"ollama_model"`
	AnthropicKey string  `mapstructure:"anthropic_key"`
	MaxTokens    int     `mapstructure:"max_tokens" validate:"min=1"`
	Temperature  float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

type PersonaConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	// Seed fixes the random source; 0 seeds from the clock.
	Seed uint64 `mapstructure:"seed"`
	// AutosaveEvery is the number of interactions between saves; 0 saves
	// after every turn.
	AutosaveEvery int `mapstructure:"autosave_every" validate:"gte=0"`
	// DayInterval is the wall time per simulated day; 0 disables the timer.
	DayInterval time.Duration `mapstructure:"day_interval" validate:"gte=0"`
	SleepHour   int           `mapstructure:"sleep_hour" validate:"gte=0,lte=23"`
	WakeHour    int           `mapstructure:"wake_hour" validate:"gte=0,lte=23"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type RateLimitConfig struct {
	ChatPerSecond float64 `mapstructure:"chat_per_second" validate:"gte=0"` // 0 disables
	Burst         int     `mapstructure:"burst" validate:"gte=0"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "haiku",
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "llama3.2",
			MaxTokens:   1024,
			Temperature: 0.8,
		},
		Persona: PersonaConfig{
			Name:          "Akira",
			AutosaveEvery: 5,
			DayInterval:   24 * time.Hour,
			SleepHour:     22,
			WakeHour:      6,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			ChatPerSecond: 1,
			Burst:         3,
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
