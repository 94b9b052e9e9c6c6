package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/myrjola/fitplan/internal/envstruct"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/exercise"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/prompt"
	"github.com/myrjola/fitplan/internal/render"
	"github.com/myrjola/fitplan/internal/sqlite"
	"github.com/spf13/cobra"
)

var errUnknownFormat = errors.NewSentinel("unknown output format")

type config struct {
	DatasetPath string `env:"FITPLAN_DATASET_PATH" envDefault:"./exercise_dataset.csv"`
	Validation  string `env:"FITPLAN_VALIDATION" envDefault:"warn"`
	// SqliteURL is only used when --db is not given.
	SqliteURL string `env:"FITPLAN_SQLITE_URL" envDefault:""`
}

func (c *cli) config() (config, error) {
	var cfg config
	if err := envstruct.Populate(&cfg, c.lookupEnv); err != nil {
		return config{}, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

func (c *cli) newGenerator(ctx context.Context, datasetPath string, policy plan.ValidationPolicy) (*plan.Generator, error) {
	var genCfg generation.EnvConfig
	if err := envstruct.Populate(&genCfg, c.lookupEnv); err != nil {
		return nil, errors.Wrap(err, "populate generation config")
	}
	if genCfg.APIKey == "" {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "OPENAI_API_KEY is not set")
	}
	dataset, err := exercise.Load(ctx, c.logger, datasetPath)
	if err != nil {
		return nil, errors.Wrap(err, "load exercise dataset")
	}
	prompts, err := prompt.NewManager()
	if err != nil {
		return nil, errors.Wrap(err, "load prompts")
	}
	sender := genCfg.NewService(c.logger)
	return plan.NewGenerator(c.logger,
		plan.NewWorkoutModel(c.logger, prompts, sender, dataset),
		plan.NewNutritionModel(c.logger, prompts, sender),
		policy), nil
}

// openDB opens the archive at url. The returned close function logs instead of failing since the command's
// result has already been written by then.
func (c *cli) openDB(ctx context.Context, url string) (*sqlite.Database, func(), error) {
	db, err := sqlite.NewDatabase(ctx, url, c.logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open db", slog.String("url", url))
	}
	return db, func() {
		if closeErr := db.Close(); closeErr != nil {
			c.logger.LogAttrs(ctx, slog.LevelError, "close db", errors.SlogError(closeErr))
		}
	}, nil
}

func (c *cli) newGenerateCmd() *cobra.Command {
	var (
		format     string
		out        string
		dataset    string
		dbURL      string
		validation string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a workout and nutrition plan",
		Example: `  fitplan generate --weight 80 --height 175 --goal 75 --weeks 8 --age 30 --gender male \
    --activity "Moderately Active" --time 45 --location Pune --diet vegetarian --cuisine Maharashtrian`,
		Args: cobra.NoArgs,
	}
	pf := addProfileFlags(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, markdown, html, or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, stdout when empty")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Exercise dataset (.csv or .xlsx), defaults to $FITPLAN_DATASET_PATH")
	cmd.Flags().StringVar(&dbURL, "db", "", "Archive the plan in this SQLite database")
	cmd.Flags().StringVar(&validation, "validation", "", "warn or reject, defaults to $FITPLAN_VALIDATION")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if _, err := renderer(format); err != nil {
			return err
		}
		profile, err := pf.resolve(cmd)
		if err != nil {
			return err
		}
		cfg, err := c.config()
		if err != nil {
			return err
		}
		if dataset == "" {
			dataset = cfg.DatasetPath
		}
		if validation == "" {
			validation = cfg.Validation
		}
		if dbURL == "" {
			dbURL = cfg.SqliteURL
		}
		policy, err := plan.ParseValidationPolicy(validation)
		if err != nil {
			return err
		}

		g, err := c.newGenerator(ctx, dataset, policy)
		if err != nil {
			return err
		}
		p, err := g.Generate(ctx, profile)
		if err != nil {
			return describeFailure(err)
		}
		if dbURL != "" {
			db, closeDB, dbErr := c.openDB(ctx, dbURL)
			if dbErr != nil {
				return dbErr
			}
			defer closeDB()
			if err = plan.NewRepository(db, c.logger).Save(ctx, p); err != nil {
				return err
			}
		}
		return writePlan(cmd, out, format, p)
	}
	return cmd
}

// describeFailure adds the offending reply to parse failures so that it ends up in front of the user.
func describeFailure(err error) error {
	var failure *generation.Failure
	if errors.As(err, &failure) && failure.RawText != "" {
		return errors.Wrap(err, "generate plan", slog.String("raw_text", failure.RawText))
	}
	return errors.Wrap(err, "generate plan")
}

type renderFunc func(io.Writer, plan.Plan) error

func renderJSON(w io.Writer, p plan.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return errors.Wrap(err, "encode plan")
	}
	return nil
}

func renderer(format string) (renderFunc, error) {
	switch format {
	case "json":
		return renderJSON, nil
	case "markdown", "md":
		return render.Markdown, nil
	case "html":
		return render.HTML, nil
	case "xlsx":
		return render.XLSX, nil
	default:
		return nil, errors.Wrap(errUnknownFormat, "select renderer", slog.String("format", format))
	}
}

// writePlan renders p to the file out, or to the command's output when out is empty.
func writePlan(cmd *cobra.Command, out, format string, p plan.Plan) (err error) {
	r, err := renderer(format)
	if err != nil {
		return err
	}
	if out == "" {
		return r(cmd.OutOrStdout(), p)
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create output", slog.String("path", out))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close output", slog.String("path", out))
		}
	}()
	if err = r(f, p); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s plan %s to %s\n", format, p.ID, out)
	return err
}
