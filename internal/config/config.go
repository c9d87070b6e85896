package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
)

// Config holds all configuration from environment variables.
type Config struct {
	BotToken    string `envconfig:"BOT_TOKEN" required:"true"`
	TenorAPIKey string `envconfig:"TENOR_API_KEY" required:"true"`
	GeminiKey   string `envconfig:"GEMINI_KEY" required:"true"`
	GroqKey     string `envconfig:"GROQ_KEY" required:"true"`

	// Number of recent channel messages pulled into the model context.
	HistoryLimit int `envconfig:"HISTORY_LIMIT" default:"10"`

	// Path to the system prompt file, re-read on every generation.
	SystemPromptFile string `envconfig:"SYSTEM_PROMPT_FILE" default:"system_prompt.txt"`

	// Path to config.toml file
	ConfigFile string `envconfig:"CONFIG_FILE" default:"config.toml"`

	// Loaded from config.toml
	Generation GenerationConfig
	Models     []ModelConfig
	Gif        GifConfig
	Presence   PresenceConfig
}

// GenerationConfig holds model sampling parameters loaded from config.toml.
type GenerationConfig struct {
	Temperature      float64 `toml:"temperature"`
	MaxOutputTokens  int     `toml:"max_output_tokens"`
	FrequencyPenalty float64 `toml:"frequency_penalty"`
}

// ModelConfig names one model and the provider hosting it.
type ModelConfig struct {
	Name     string `toml:"name"`
	Provider string `toml:"provider"` // "google" or "groq"
	Default  bool   `toml:"default"`
}

// GifConfig holds the candidate search queries for the gif reply path.
type GifConfig struct {
	Queries []string `toml:"queries"`
}

// PresenceConfig holds the custom status shown once the bot is ready.
type PresenceConfig struct {
	Name  string `toml:"name"`
	State string `toml:"state"`
}

// FileConfig represents the structure of config.toml.
type FileConfig struct {
	Generation GenerationConfig `toml:"generation"`
	Models     []ModelConfig    `toml:"models"`
	Gif        GifConfig        `toml:"gif"`
	Presence   PresenceConfig   `toml:"presence"`
}

// DefaultGeneration provides fallback sampling parameters if config.toml is
// not found.
var DefaultGeneration = GenerationConfig{
	Temperature:      1.0,
	MaxOutputTokens:  4096,
	FrequencyPenalty: 0.5,
}

// DefaultModels provides the fallback model registry.
var DefaultModels = []ModelConfig{
	{Name: "gemini-flash-lite-latest", Provider: "google"},
	{Name: "moonshotai/kimi-k2-instruct-0905", Provider: "groq", Default: true},
}

// DefaultGifQueries are the search terms used when config.toml has none.
var DefaultGifQueries = []string{"cat", "kitty", "kitten", "funny cat"}

// DefaultPresence is the fallback custom status.
var DefaultPresence = PresenceConfig{
	Name:  "Catnip",
	State: "Searching for the catnip",
}

// LoadEnv loads the configuration from environment variables.
func (c Config) LoadEnv() (Config, error) {
	cfg := c

	if err := envconfig.Process("", &cfg); err != nil {
		return c, err
	}

	return cfg, nil
}

// LoadFile loads models, generation parameters, and gif queries from the
// config.toml file, falling back to defaults when it is absent.
func (c *Config) LoadFile() error {
	configPath := c.ConfigFile
	if !filepath.IsAbs(configPath) {
		// Try current directory first, then the executable directory
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			execPath, err := os.Executable()
			if err == nil {
				execDir := filepath.Dir(execPath)
				configPath = filepath.Join(execDir, c.ConfigFile)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		c.applyDefaults()
		return nil
	}

	var fileConfig FileConfig
	if _, err := toml.DecodeFile(configPath, &fileConfig); err != nil {
		return err
	}

	c.Generation = fileConfig.Generation
	c.Models = fileConfig.Models
	c.Gif = fileConfig.Gif
	c.Presence = fileConfig.Presence
	c.applyDefaults()

	return nil
}

func (c *Config) applyDefaults() {
	if c.Generation.Temperature == 0 && c.Generation.MaxOutputTokens == 0 {
		c.Generation = DefaultGeneration
	}
	if len(c.Models) == 0 {
		c.Models = DefaultModels
	}
	if len(c.Gif.Queries) == 0 {
		c.Gif.Queries = DefaultGifQueries
	}
	if c.Presence.Name == "" {
		c.Presence = DefaultPresence
	}
}

// DefaultModel returns the name of the model marked default in the registry,
// or the first entry when none is marked.
func (c *Config) DefaultModel() string {
	for _, m := range c.Models {
		if m.Default {
			return m.Name
		}
	}
	if len(c.Models) > 0 {
		return c.Models[0].Name
	}
	return ""
}

// SystemPrompt reads the system prompt file, trimmed of surrounding
// whitespace. It is read fresh on every call, never cached.
func (c *Config) SystemPrompt() (string, error) {
	data, err := os.ReadFile(c.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("failed to read system prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func NewConfig() (*Config, error) {
	var cfg Config
	loadedCfg, err := cfg.LoadEnv()
	if err != nil {
		return nil, err
	}

	// Load models, generation parameters, and gif queries from config.toml
	if err := loadedCfg.LoadFile(); err != nil {
		return nil, err
	}

	return &loadedCfg, nil
}

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(
			NewConfig,
		),
	)
}
