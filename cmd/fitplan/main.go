// Command fitplan generates fitness plans from the terminal.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/spf13/cobra"
)

// cli carries what the subcommands share. It is filled in by the persistent pre-run of the root command.
type cli struct {
	lookupEnv func(string) (string, bool)
	logger    *slog.Logger
	logOutput io.Writer

	envFile string
	verbose bool
}

// newRootCmd builds the command tree. lookupEnv is consulted before the .env file.
func newRootCmd(lookupEnv func(string) (string, bool), logOutput io.Writer) *cobra.Command {
	c := &cli{lookupEnv: lookupEnv, logOutput: logOutput}
	root := &cobra.Command{
		Use:           "fitplan",
		Short:         "fitplan generates personalized workout and nutrition plans",
		Long:          "fitplan derives calorie targets from a profile and asks a language model for a weekly workout and nutrition plan.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "File with environment variables, ignored when missing")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		c.newGenerateCmd(),
		c.newTargetsCmd(),
		c.newExercisesCmd(),
		c.newShowCmd(),
		c.newBackupCmd(),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(logging.NewContextHandler(slog.NewTextHandler(c.logOutput, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))

	fileEnv, err := godotenv.Read(c.envFile)
	switch {
	case err == nil:
		c.logger.LogAttrs(cmd.Context(), slog.LevelDebug, "loaded env file", slog.String("path", c.envFile))
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("env-file"):
		fileEnv = nil
	default:
		return errors.Wrap(err, "read env file", slog.String("path", c.envFile))
	}
	processEnv := c.lookupEnv
	c.lookupEnv = func(key string) (string, bool) {
		if v, ok := processEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.LookupEnv, os.Stderr).ExecuteContext(ctx)
	cancel()
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		logger.LogAttrs(context.Background(), slog.LevelError, "fitplan failed", errors.SlogError(err))
		os.Exit(1)
	}
}
