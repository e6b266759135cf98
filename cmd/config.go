package cmd

import (
	"errors"
	"time"

	"github.com/spf13/viper"
	"github.com/spigell/navihire/internal/ai"
	"github.com/spigell/navihire/internal/session"
)

type Config struct {
	UserRole string         `mapstructure:"user-role"`
	AI       *AIConfig      `mapstructure:"ai"`
	Session  *SessionConfig `mapstructure:"session"`
	Flights  *FlightsConfig `mapstructure:"flights"`
	Server   *ServerConfig  `mapstructure:"server"`
}

type AIConfig struct {
	Provider          string           `mapstructure:"provider"`
	RequestsPerSecond float64          `mapstructure:"requests-per-second"`
	Burst             int              `mapstructure:"burst"`
	MaxLogLength      int              `mapstructure:"max-log-length"`
	Gemini            *GeminiConfig    `mapstructure:"gemini"`
	OpenAI            *OpenAIConfig    `mapstructure:"openai"`
	Anthropic         *AnthropicConfig `mapstructure:"anthropic"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type AnthropicConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxTokens  int64  `mapstructure:"max-tokens"`
}

type SessionConfig struct {
	Backend string              `mapstructure:"backend"`
	Redis   session.RedisConfig `mapstructure:"redis"`
}

type FlightsConfig struct {
	SerpAPIKey     string `mapstructure:"serpapi-key"`
	SerpAPIKeyFile string `mapstructure:"serpapi-key-file"`
	Catalog        string `mapstructure:"catalog"`
	CacheSize      int    `mapstructure:"cache-size"`
	Currency       string `mapstructure:"currency"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user-role", "hr_manager")

	v.SetDefault("ai.provider", ai.ProviderGemini)
	v.SetDefault("ai.requests-per-second", 2)
	v.SetDefault("ai.burst", 1)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.max-retries", 3)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redis.address", "localhost:6379")
	v.SetDefault("session.redis.prefix", session.DefaultPrefix)
	v.SetDefault("session.redis.ttl", 24*time.Hour)

	v.SetDefault("flights.cache-size", 128)
	v.SetDefault("flights.currency", "INR")

	v.SetDefault("server.address", ":8000")
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config is required")
	}
	if c.AI == nil {
		return errors.New("ai section is required")
	}
	if c.Session == nil {
		c.Session = &SessionConfig{Backend: "memory"}
	}
	if c.Flights == nil {
		c.Flights = &FlightsConfig{}
	}
	if c.Server == nil {
		c.Server = &ServerConfig{}
	}
	return nil
}
