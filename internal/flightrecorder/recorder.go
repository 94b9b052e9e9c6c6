// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when a request runs out
// of time, so that slow plan generations can be inspected with go tool trace.
package flightrecorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"sync"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
)

const (
	defaultMinAge   = 2 * time.Minute
	defaultMaxBytes = 32 << 20
	defaultCooldown = 30 * time.Minute
)

var ErrNotStarted = errors.NewSentinel("flight recorder not started")

// Config configures a Recorder. Zero values fall back to defaults.
type Config struct {
	// Directory receives the trace files. It is created when missing.
	Directory string
	MinAge    time.Duration
	MaxBytes  uint64
	// Cooldown is the minimum time between two captures.
	Cooldown time.Duration
}

// Recorder captures at most one trace per cooldown period.
type Recorder struct {
	logger   *slog.Logger
	fr       *trace.FlightRecorder
	dir      string
	cooldown time.Duration
	now      func() time.Time

	mu          sync.Mutex
	started     bool
	lastCapture time.Time
}

// New prepares a Recorder. Call Start to begin recording.
func New(logger *slog.Logger, cfg Config) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errors.New("traces directory is required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o750); err != nil { //nolint:mnd // owner and group only.
		return nil, errors.Wrap(err, "create traces directory", slog.String("dir", cfg.Directory))
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = defaultMinAge
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &Recorder{
		logger:   logger,
		fr:       trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: cfg.MinAge, MaxBytes: cfg.MaxBytes}),
		dir:      cfg.Directory,
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}, nil
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fr.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	r.started = true
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("dir", r.dir), slog.Duration("cooldown", r.cooldown))
	return nil
}

func (r *Recorder) Stop(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.fr.Stop()
	r.started = false
	r.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the buffered trace to a new file named after reason. It returns an empty path without error
// while the cooldown from the previous capture is running.
func (r *Recorder) Capture(ctx context.Context, reason string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return "", ErrNotStarted
	}
	now := r.now()
	if !r.lastCapture.IsZero() && now.Sub(r.lastCapture) < r.cooldown {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture during cooldown",
			slog.Time("last_capture", r.lastCapture))
		return "", nil
	}

	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.trace", reason, now.UTC().Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create trace file", slog.String("path", path))
	}
	n, err := r.fr.WriteTo(f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return "", errors.Wrap(err, "write trace", slog.String("path", path))
	}
	r.lastCapture = now
	r.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("path", path), slog.String("reason", reason), slog.Int64("bytes", n))
	return path, nil
}
