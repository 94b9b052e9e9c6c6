package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/spf13/cobra"
)

var errNoDatabase = errors.NewSentinel("no database given, use --db or FITPLAN_SQLITE_URL")

// dbURL picks the --db flag over the environment.
func (c *cli) dbURL(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := c.config()
	if err != nil {
		return "", err
	}
	if cfg.SqliteURL == "" {
		return "", errNoDatabase
	}
	return cfg.SqliteURL, nil
}

func (c *cli) newShowCmd() *cobra.Command {
	var (
		dbFlag string
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "show [plan-id]",
		Short: "Print an archived plan, or list the archive when no ID is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url, err := c.dbURL(dbFlag)
			if err != nil {
				return err
			}
			db, closeDB, err := c.openDB(ctx, url)
			if err != nil {
				return err
			}
			defer closeDB()
			repo := plan.NewRepository(db, c.logger)

			if len(args) == 1 {
				p, getErr := repo.Get(ctx, args[0])
				if getErr != nil {
					return getErr
				}
				return writePlan(cmd, out, format, p)
			}

			const listLimit = 50
			summaries, err := repo.List(ctx, listLimit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding.
			_, _ = fmt.Fprintln(tw, "ID\tCREATED\tVALID\tDERIVED FROM")
			for _, s := range summaries {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.Valid, s.DerivedFrom)
			}
			if err = tw.Flush(); err != nil {
				return errors.Wrap(err, "flush table")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database, defaults to $FITPLAN_SQLITE_URL")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json, markdown, html, or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file, stdout when empty")
	return cmd
}

func (c *cli) newBackupCmd() *cobra.Command {
	var (
		dbFlag string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the plan archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			url, err := c.dbURL(dbFlag)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("fitplan-%s.sqlite3", time.Now().Format("20060102-150405"))
			}
			db, closeDB, err := c.openDB(ctx, url)
			if err != nil {
				return err
			}
			defer closeDB()
			if err = db.Snapshot(ctx, out); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created backup: %s\n", out)
			return err
		},
	}
	cmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database, defaults to $FITPLAN_SQLITE_URL")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Backup file, must not exist yet")
	return cmd
}
