package bob

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Name:                   "Bob",
		APIKey:                 "sk-test",
		Model:                  "gpt-4o-mini",
		MaxTokens:              4096,
		Temperature:            0.7,
		Instructions:           "You are Bob.",
		MaxIterations:          10,
		MaxConversationHistory: 50,
		MaxRetries:             3,
		RetryBase:              time.Second,
		RetryMax:               time.Minute,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "Bob", cfg.Name)
	assert.Equal(t, "sk-from-env", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.EqualValues(t, 4096, cfg.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 50, cfg.MaxConversationHistory)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBase)
	assert.Equal(t, time.Minute, cfg.RetryMax)
	assert.NotEmpty(t, cfg.Instructions)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BOB_API_KEY", "sk-bob")
	t.Setenv("BOB_MODEL", "gpt-4o")
	t.Setenv("BOB_MAX_ITERATIONS", "5")
	t.Setenv("BOB_TEMPERATURE", "0.2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sk-bob", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-9)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	t.Run("missing api key", func(t *testing.T) {
		cfg := validConfig()
		cfg.APIKey = "  "
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := validConfig()
		cfg.Model = ""
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidModel)
	})

	t.Run("temperature out of range", func(t *testing.T) {
		cfg := validConfig()
		cfg.Temperature = 2.5
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidTemperature)
	})

	t.Run("bad max tokens", func(t *testing.T) {
		cfg := validConfig()
		cfg.MaxTokens = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidMaxTokens)
	})

	t.Run("bad iteration cap", func(t *testing.T) {
		cfg := validConfig()
		cfg.MaxIterations = -1
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidMaxIterations)
	})

	t.Run("bad retry policy", func(t *testing.T) {
		cfg := validConfig()
		cfg.RetryMax = cfg.RetryBase / 2
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidRetryPolicy)
	})
}
