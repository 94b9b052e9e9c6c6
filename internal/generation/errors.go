package generation

import (
	"fmt"
	"log/slog"
)

// Kind classifies why a generation failed.
type Kind string

const (
	// KindAuth covers authentication, authorization, and malformed request errors. Never retried.
	KindAuth Kind = "auth"
	// KindTransient covers rate limits and server side errors.
	KindTransient Kind = "transient"
	// KindConnection covers transport errors and timeouts.
	KindConnection Kind = "connection"
	// KindUnknown is anything the backend could not classify. Never retried.
	KindUnknown Kind = "unknown"
	// KindParse means the reply arrived but held no decodable payload.
	KindParse Kind = "parse"
)

// Retryable reports whether another attempt may succeed.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindConnection
}

// BackendError is returned by a [Backend] for errors it could classify. Any other error is treated as KindUnknown.
type BackendError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status code of the text generation API to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == 400, status == 401, status == 403, status == 404, status == 422: //nolint:mnd // HTTP statuses.
		return KindAuth
	case status == 408, status == 409, status == 429, status >= 500: //nolint:mnd // HTTP statuses.
		return KindTransient
	default:
		return KindUnknown
	}
}

// Failure is the only error type returned by [Service.Send].
type Failure struct {
	Kind    Kind
	Message string
	// RawText is the offending reply for KindParse failures.
	RawText  string
	Attempts int
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("generation failed (%s): %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// LogValue keeps the potentially long raw text out of the logs, only its length is logged.
func (f *Failure) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(f.Kind)),
		slog.String("message", f.Message),
		slog.Int("attempts", f.Attempts),
		slog.Int("raw_text_len", len(f.RawText)),
	)
}
