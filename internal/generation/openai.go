package generation

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIConfig configures [OpenAIBackend].
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
	// BaseURL overrides the API endpoint, e.g. for a compatible proxy. Empty uses the default.
	BaseURL string
}

// OpenAIBackend completes requests with the OpenAI chat completions API.
type OpenAIBackend struct {
	client openai.Client
	cfg    OpenAIConfig
	logger *slog.Logger
}

// NewOpenAIBackend creates a backend. The SDK's own retries are disabled because [Service] owns the retry policy.
func NewOpenAIBackend(logger *slog.Logger, cfg OpenAIConfig) *OpenAIBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger,
	}
}

// Complete implements [Backend].
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       openai.ChatModel(b.cfg.Model),
		Temperature: openai.Float(b.cfg.Temperature),
	}
	if b.cfg.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(b.cfg.MaxTokens)
	}

	b.logger.LogAttrs(ctx, slog.LevelDebug, "sending chat completion request",
		slog.String("model", b.cfg.Model),
		slog.Int("system_len", len(req.System)),
		slog.Int("user_len", len(req.User)))

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Completion{}, classify(err)
	}
	if len(completion.Choices) == 0 {
		return Completion{}, &BackendError{
			Kind:       KindTransient,
			StatusCode: 0,
			Err:        errors.New("completion has no choices"),
		}
	}

	b.logger.LogAttrs(ctx, slog.LevelDebug, "received chat completion response",
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens),
		slog.String("finish_reason", string(completion.Choices[0].FinishReason)))

	return Completion{
		Text:         completion.Choices[0].Message.Content,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}, nil
}

// classify turns an SDK error into a [*BackendError] when its cause is known.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &BackendError{Kind: KindForStatus(apiErr.StatusCode), StatusCode: apiErr.StatusCode, Err: err}
	}
	var (
		netErr net.Error
		urlErr *url.Error
	)
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &BackendError{Kind: KindConnection, StatusCode: 0, Err: err}
	}
	return errors.Wrap(err, "chat completion")
}
