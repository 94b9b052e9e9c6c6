package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/myrjola/fitplan/internal/envstruct"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/exercise"
	"github.com/myrjola/fitplan/internal/flightrecorder"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/prompt"
	"github.com/myrjola/fitplan/internal/sqlite"
)

type application struct {
	logger         *slog.Logger
	generator      *plan.Generator
	plans          *plan.Repository
	allowedOrigins []string
	handlerTimeout time.Duration
	// traces is nil unless FITPLAN_TRACES_DIR is set.
	traces *flightrecorder.Recorder
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"FITPLAN_ADDR" envDefault:"localhost:8081"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"FITPLAN_SQLITE_URL" envDefault:"./fitplan.sqlite3"`
	// DatasetPath is the exercise dataset, either .csv or .xlsx.
	DatasetPath string `env:"FITPLAN_DATASET_PATH" envDefault:"./exercise_dataset.csv"`
	// AllowedOrigins is a comma separated list of origins allowed to call the API from a browser.
	AllowedOrigins string `env:"FITPLAN_ALLOWED_ORIGINS" envDefault:""`

	// Validation is either "warn" or "reject".
	Validation string `env:"FITPLAN_VALIDATION" envDefault:"warn"`
	// HandlerTimeout bounds a single request, generation included.
	HandlerTimeout time.Duration `env:"FITPLAN_HANDLER_TIMEOUT" envDefault:"5m"`
	// TracesDir enables the flight recorder, which writes an execution trace there when a request times out.
	TracesDir string `env:"FITPLAN_TRACES_DIR" envDefault:""`
}

func splitOrigins(s string) []string {
	var origins []string
	for o := range strings.SplitSeq(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		cfg    config
		genCfg generation.EnvConfig
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if err = envstruct.Populate(&genCfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate generation config")
	}
	policy, err := plan.ParseValidationPolicy(cfg.Validation)
	if err != nil {
		return err
	}
	if genCfg.APIKey == "" {
		logger.LogAttrs(ctx, slog.LevelWarn, "OPENAI_API_KEY is not set")
	}

	dataset, err := exercise.Load(ctx, logger, cfg.DatasetPath)
	if err != nil {
		return errors.Wrap(err, "load exercise dataset")
	}
	prompts, err := prompt.NewManager()
	if err != nil {
		return errors.Wrap(err, "load prompts")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	sender := genCfg.NewService(logger)

	app := &application{
		logger: logger,
		generator: plan.NewGenerator(logger,
			plan.NewWorkoutModel(logger, prompts, sender, dataset),
			plan.NewNutritionModel(logger, prompts, sender),
			policy),
		plans:          plan.NewRepository(db, logger),
		allowedOrigins: splitOrigins(cfg.AllowedOrigins),
		handlerTimeout: cfg.HandlerTimeout,
	}

	if cfg.TracesDir != "" {
		if app.traces, err = flightrecorder.New(logger, flightrecorder.Config{Directory: cfg.TracesDir}); err != nil {
			return errors.Wrap(err, "new flight recorder")
		}
		if err = app.traces.Start(ctx); err != nil {
			return err
		}
		defer app.traces.Stop(context.WithoutCancel(ctx))
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
