package main

import (
	"encoding/json"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/spf13/cobra"
)

// targetsOutput is what the targets command prints.
type targetsOutput struct {
	Profile plan.UserProfile    `json:"profile"`
	Targets plan.DerivedTargets `json:"targets"`
}

func (c *cli) newTargetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Print the calorie and macro targets of a profile without generating a plan",
		Args:  cobra.NoArgs,
	}
	pf := addProfileFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		profile, err := pf.resolve(cmd)
		if err != nil {
			return err
		}
		g := plan.NewGenerator(c.logger, nil, nil, plan.PolicyWarn)
		profile, targets, err := g.Targets(cmd.Context(), profile)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err = enc.Encode(targetsOutput{Profile: profile, Targets: targets}); err != nil {
			return errors.Wrap(err, "encode targets")
		}
		return nil
	}
	return cmd
}
