package bob

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration validation failures. These surface at construction and
// are never retried.
var (
	ErrMissingAPIKey        = errors.New("missing API key")
	ErrInvalidModel         = errors.New("invalid model name")
	ErrInvalidTemperature   = errors.New("temperature out of range")
	ErrInvalidMaxTokens     = errors.New("invalid max tokens")
	ErrInvalidMaxIterations = errors.New("invalid max iterations")
	ErrInvalidRetryPolicy   = errors.New("invalid retry policy")
)

const defaultInstructions = "You are Bob, a helpful assistant. " +
	"Use the available tools when they help you answer accurately, " +
	"and keep your answers concise."

// Config holds everything an agent needs. Load fills it from
// environment variables and an optional config file; treat it as
// immutable afterwards.
type Config struct {
	// Name is the agent's display name, used as event sender.
	Name string `mapstructure:"name"`

	// APIKey authenticates against the completion API.
	APIKey string `mapstructure:"api_key"`

	// BaseURL overrides the API endpoint, empty uses the default.
	BaseURL string `mapstructure:"base_url"`

	Model       string  `mapstructure:"model"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`

	// Instructions is the system prompt.
	Instructions string `mapstructure:"instructions"`

	// MaxIterations bounds reasoning iterations per run.
	MaxIterations int `mapstructure:"max_iterations"`

	// MaxConversationHistory bounds retained messages per thread, zero
	// keeps everything.
	MaxConversationHistory int `mapstructure:"max_conversation_history"`

	MaxRetries int           `mapstructure:"max_retries"`
	RetryBase  time.Duration `mapstructure:"retry_base"`
	RetryMax   time.Duration `mapstructure:"retry_max"`
}

// LoadConfig reads configuration with env > config file > defaults
// precedence. Environment variables use the BOB_ prefix
// (BOB_MODEL, BOB_MAX_ITERATIONS, ...); the API key additionally binds
// OPENAI_API_KEY.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetDefault("name", "Bob")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("instructions", defaultInstructions)
	v.SetDefault("max_iterations", 10)
	v.SetDefault("max_conversation_history", 50)
	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_base", time.Second)
	v.SetDefault("retry_max", time.Minute)

	v.SetEnvPrefix("BOB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "BOB_API_KEY", "OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("binding api key: %w", err)
	}

	v.SetConfigName("bob")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the agent cannot run
// with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Model) == "" {
		return ErrInvalidModel
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v not in [0, 2]", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxIterations, c.MaxIterations)
	}
	if c.MaxRetries <= 0 || c.RetryBase <= 0 || c.RetryMax < c.RetryBase {
		return fmt.Errorf("%w: retries=%d base=%s max=%s",
			ErrInvalidRetryPolicy, c.MaxRetries, c.RetryBase, c.RetryMax)
	}
	return nil
}
