package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/exercise"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/spf13/cobra"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (c *cli) newExercisesCmd() *cobra.Command {
	var (
		dataset  string
		weightKg float64
	)
	cmd := &cobra.Command{
		Use:   "exercises",
		Short: "List the exercises of the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataset == "" {
				cfg, err := c.config()
				if err != nil {
					return err
				}
				dataset = cfg.DatasetPath
			}
			ds, err := exercise.Load(cmd.Context(), c.logger, dataset)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd // column padding.
			header := "ID\tNAME\tMINUTES\tKCAL/KG\tKCAL/MIN"
			if weightKg > 0 {
				header += "\tKCAL@" + formatFloat(weightKg) + "KG"
			}
			_, _ = fmt.Fprintln(tw, header)
			for _, r := range ds.Records {
				row := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", r.ID, r.Name, formatFloat(r.DurationMin),
					formatFloat(r.CaloriesPerKg), formatFloat(r.CaloriesPerMinute))
				if weightKg > 0 {
					row += "\t" + formatFloat(fitness.ExerciseCalories(r.CaloriesPerKg, weightKg))
				}
				_, _ = fmt.Fprintln(tw, row)
			}
			if err = tw.Flush(); err != nil {
				return errors.Wrap(err, "flush table")
			}
			if ds.Dropped > 0 {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%d rows dropped as duplicates or unusable\n", ds.Dropped)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "Exercise dataset (.csv or .xlsx), defaults to $FITPLAN_DATASET_PATH")
	cmd.Flags().Float64Var(&weightKg, "weight", 0, "Also print the calories of one session at this weight")
	return cmd
}
