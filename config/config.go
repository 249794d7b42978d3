package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingCredential   = errors.New("language model api key is missing")
	ErrUnsupportedProvider = errors.New("llm provider not supported")
)

// Error reports an invalid or missing setting. It is fatal at startup.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("config %s: %v", e.Key, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Config holds every setting the application reads at startup.
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// LLMConfig selects the hosted model and its credential.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"` // gemini, openai, deepseek, mock
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Temperature   float64       `mapstructure:"temperature"`
	StageTimeout  time.Duration `mapstructure:"stage_timeout"`
	MaxInputBytes int           `mapstructure:"max_input_bytes"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	MaxRuns int    `mapstructure:"max_runs"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// providerKeyEnv names the vendor variable consulted when llm.api_key is unset.
var providerKeyEnv = map[string]string{
	"gemini":   "GOOGLE_API_KEY",
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
}

// Load reads the optional config file at path (json, yaml or toml) and the
// LAUDO_* environment. When llm.api_key is unset, the selected provider's own
// variable (see providerKeyEnv) supplies it.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.stage_timeout", 120*time.Second)
	v.SetDefault("llm.max_input_bytes", 64*1024)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_runs", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("LAUDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &Error{Key: "file", Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &Error{Key: "file", Err: err}
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = strings.TrimSpace(os.Getenv(name))
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings without touching the network.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "mock":
		return nil
	case "gemini":
	case "openai":
		if c.LLM.Model == "" {
			return &Error{Key: "llm.model", Err: errors.New("required for provider openai")}
		}
	case "deepseek":
		// DeepSeek only offers an OpenAI-compatible endpoint.
		if c.LLM.BaseURL == "" {
			return &Error{Key: "llm.base_url", Err: errors.New("required for provider deepseek")}
		}
		if c.LLM.Model == "" {
			return &Error{Key: "llm.model", Err: errors.New("required for provider deepseek")}
		}
	default:
		return &Error{Key: "llm.provider", Err: fmt.Errorf("%w: %q", ErrUnsupportedProvider, c.LLM.Provider)}
	}
	if c.LLM.APIKey == "" {
		return &Error{Key: "llm.api_key", Err: ErrMissingCredential}
	}
	if c.LLM.MaxInputBytes < 0 {
		return &Error{Key: "llm.max_input_bytes", Err: errors.New("must not be negative")}
	}
	return nil
}

// LoadDotEnv copies KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already non-empty.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return &Error{Key: "dotenv", Err: err}
	}
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if os.Getenv(name) != "" {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return &Error{Key: "dotenv", Err: err}
		}
	}
	return nil
}
