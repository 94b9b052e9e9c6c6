package generation

import (
	"log/slog"
	"time"
)

// EnvConfig is the environment configuration of the OpenAI backend and the retry policy. Populate it with
// envstruct.Populate.
type EnvConfig struct {
	APIKey string `env:"OPENAI_API_KEY" envDefault:""`
	// BaseURL points the client at a compatible API, e.g. a proxy. Empty uses the OpenAI API.
	BaseURL string `env:"FITPLAN_OPENAI_BASE_URL" envDefault:""`
	Model   string `env:"FITPLAN_MODEL" envDefault:"gpt-4o-mini"`
	// MaxRetries is the total number of attempts per request.
	MaxRetries     int           `env:"FITPLAN_MAX_RETRIES" envDefault:"3"`
	RetryBackoff   time.Duration `env:"FITPLAN_RETRY_BACKOFF" envDefault:"1s"`
	RequestTimeout time.Duration `env:"FITPLAN_REQUEST_TIMEOUT" envDefault:"60s"`
	MaxTokens      int64         `env:"FITPLAN_MAX_TOKENS" envDefault:"4000"`
	Temperature    float64       `env:"FITPLAN_TEMPERATURE" envDefault:"0"`
}

// NewService creates a Service backed by OpenAI with an in-memory cache.
func (c EnvConfig) NewService(logger *slog.Logger) *Service {
	backend := NewOpenAIBackend(logger, OpenAIConfig{
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.RequestTimeout,
		BaseURL:     c.BaseURL,
	})
	return NewService(logger, backend, NewMemoryCache(), Config{
		MaxAttempts: c.MaxRetries,
		BackoffUnit: c.RetryBackoff,
	})
}
