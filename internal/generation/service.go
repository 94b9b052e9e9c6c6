// Package generation wraps the external text generation call used to produce plans.
//
// [Service.Send] caches successful replies, retries transient failures with exponential backoff, and extracts the
// JSON payload from the reply text. It reports every failure as a [*Failure].
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
)

// Request is one prompt pair.
type Request struct {
	System string
	User   string
}

// Completion is the raw reply of a Backend.
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Backend performs a single text generation call without retrying.
//
// Errors that the backend can classify are returned as [*BackendError].
type Backend interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Config tunes retries.
type Config struct {
	// MaxAttempts is the total number of calls per Send, including the first one. Defaults to 3.
	MaxAttempts int
	// BackoffUnit is multiplied by 2^k before attempt k+2. Defaults to one second.
	BackoffUnit time.Duration
}

const (
	defaultMaxAttempts = 3
	defaultBackoffUnit = time.Second
)

// Service sends requests to a Backend. It is safe for concurrent use.
type Service struct {
	logger  *slog.Logger
	backend Backend
	cache   Cache
	cfg     Config
}

// NewService creates a Service. A nil cache disables caching altogether.
func NewService(logger *slog.Logger, backend Backend, cache Cache, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = defaultBackoffUnit
	}
	return &Service{
		logger:  logger,
		backend: backend,
		cache:   cache,
		cfg:     cfg,
	}
}

type sendOptions struct {
	useCache bool
}

// SendOption customizes a single Send.
type SendOption func(*sendOptions)

// WithoutCache skips both the cache lookup and storing the result.
func WithoutCache() SendOption {
	return func(o *sendOptions) {
		o.useCache = false
	}
}

// Send returns the payload of the reply to req. The error, if any, is always a [*Failure].
func (s *Service) Send(ctx context.Context, req Request, opts ...SendOption) (_ Payload, err error) {
	o := sendOptions{useCache: s.cache != nil}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		if r := recover(); r != nil {
			err = &Failure{
				Kind:     KindUnknown,
				Message:  "backend panicked",
				RawText:  "",
				Attempts: 0,
				Err:      errors.DecoratePanic(r),
			}
			s.logger.LogAttrs(ctx, slog.LevelError, "generation panicked", errors.SlogError(err))
		}
	}()

	key := CacheKey(req)
	if o.useCache {
		if p, ok := s.cache.Get(key); ok {
			s.logger.LogAttrs(ctx, slog.LevelDebug, "generation cache hit", slog.String("cache_key", key))
			return p.Clone(), nil
		}
	}

	var lastErr error
	attempt := 0
	for attempt < s.cfg.MaxAttempts {
		if attempt > 0 {
			delay := s.cfg.BackoffUnit << (attempt - 1)
			s.logger.LogAttrs(ctx, slog.LevelInfo, "retrying generation",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", s.cfg.MaxAttempts),
				slog.Duration("delay", delay))
			if waitErr := sleep(ctx, delay); waitErr != nil {
				return nil, &Failure{
					Kind:     KindConnection,
					Message:  "canceled while waiting to retry",
					RawText:  "",
					Attempts: attempt,
					Err:      errors.Join(waitErr, lastErr),
				}
			}
		}
		attempt++

		start := time.Now()
		completion, callErr := s.backend.Complete(ctx, req)
		if callErr == nil {
			s.logger.LogAttrs(ctx, slog.LevelInfo, "generation completed",
				slog.Int("attempt", attempt),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("input_tokens", completion.InputTokens),
				slog.Int64("output_tokens", completion.OutputTokens))
			return s.extract(ctx, key, completion.Text, attempt, o)
		}
		lastErr = callErr

		var be *BackendError
		if !errors.As(callErr, &be) {
			s.logger.LogAttrs(ctx, slog.LevelError, "unrecognized generation error, not retrying",
				slog.Int("attempt", attempt), errors.SlogError(callErr))
			return nil, &Failure{
				Kind:     KindUnknown,
				Message:  callErr.Error(),
				RawText:  "",
				Attempts: attempt,
				Err:      callErr,
			}
		}
		if !be.Kind.Retryable() {
			s.logger.LogAttrs(ctx, slog.LevelError, "non-retryable generation error",
				slog.Int("attempt", attempt), slog.String("kind", string(be.Kind)), errors.SlogError(callErr))
			return nil, &Failure{
				Kind:     be.Kind,
				Message:  callErr.Error(),
				RawText:  "",
				Attempts: attempt,
				Err:      callErr,
			}
		}
		s.logger.LogAttrs(ctx, slog.LevelWarn, "retryable generation error",
			slog.Int("attempt", attempt), slog.String("kind", string(be.Kind)), errors.SlogError(callErr))
	}

	var be *BackendError
	kind := KindUnknown
	if errors.As(lastErr, &be) {
		kind = be.Kind
	}
	return nil, &Failure{
		Kind:     kind,
		Message:  fmt.Sprintf("all %d attempts failed: %v", attempt, lastErr),
		RawText:  "",
		Attempts: attempt,
		Err:      lastErr,
	}
}

func (s *Service) extract(ctx context.Context, key, text string, attempts int, o sendOptions) (Payload, error) {
	p, err := ExtractPayload(text)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "parse generation reply",
			slog.Int("reply_len", len(text)), errors.SlogError(err))
		s.logger.LogAttrs(ctx, slog.LevelDebug, "unparsable generation reply", slog.String("reply", text))
		return nil, &Failure{
			Kind:     KindParse,
			Message:  "failed to parse JSON reply: " + err.Error(),
			RawText:  text,
			Attempts: attempts,
			Err:      err,
		}
	}
	if o.useCache {
		p = s.cache.Add(key, p)
	}
	return p.Clone(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // returned as the cause of a Failure.
	case <-t.C:
		return nil
	}
}
