package main

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/spf13/cobra"
)

// profileFlags reads a profile from flags, optionally on top of a JSON file.
type profileFlags struct {
	file    string
	profile plan.UserProfile
	gender  string
	level   string
	diet    string
}

func addProfileFlags(cmd *cobra.Command) *profileFlags {
	pf := &profileFlags{}
	f := cmd.Flags()
	f.StringVar(&pf.file, "profile", "", "JSON file with the profile, flags override its fields")
	f.Float64Var(&pf.profile.WeightKg, "weight", 0, "Current weight in kg")
	f.Float64Var(&pf.profile.HeightCm, "height", 0, "Height in cm")
	f.Float64Var(&pf.profile.GoalWeightKg, "goal", 0, "Goal weight in kg")
	f.IntVar(&pf.profile.DurationWeeks, "weeks", 0, "Weeks to reach the goal")
	f.IntVar(&pf.profile.Age, "age", 0, "Age in years")
	f.StringVar(&pf.gender, "gender", "", "male or female")
	f.StringVar(&pf.level, "activity", "", "Activity level, e.g. \"Moderately Active\"")
	f.IntVar(&pf.profile.TimeConstraintMin, "time", 0, "Minutes available for exercise per day")
	f.StringVar(&pf.profile.Location, "location", "", "Where the user lives")
	f.StringVar(&pf.diet, "diet", "", "vegetarian, non_vegetarian, or vegan")
	f.StringVar(&pf.profile.CuisineType, "cuisine", "", "Preferred cuisine")
	return pf
}

// resolve merges the profile file with the flags that were set on the command line.
func (pf *profileFlags) resolve(cmd *cobra.Command) (plan.UserProfile, error) {
	var profile plan.UserProfile
	if pf.file != "" {
		b, err := os.ReadFile(pf.file)
		if err != nil {
			return plan.UserProfile{}, errors.Wrap(err, "read profile", slog.String("path", pf.file))
		}
		if err = json.Unmarshal(b, &profile); err != nil {
			return plan.UserProfile{}, errors.Wrap(err, "decode profile", slog.String("path", pf.file))
		}
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("weight", func() { profile.WeightKg = pf.profile.WeightKg })
	set("height", func() { profile.HeightCm = pf.profile.HeightCm })
	set("goal", func() { profile.GoalWeightKg = pf.profile.GoalWeightKg })
	set("weeks", func() { profile.DurationWeeks = pf.profile.DurationWeeks })
	set("age", func() { profile.Age = pf.profile.Age })
	set("gender", func() { profile.Gender = fitness.Gender(pf.gender) })
	set("activity", func() { profile.ActivityLevel = fitness.ActivityLevel(pf.level) })
	set("time", func() { profile.TimeConstraintMin = pf.profile.TimeConstraintMin })
	set("location", func() { profile.Location = pf.profile.Location })
	set("diet", func() { profile.DietaryType = plan.DietaryType(pf.diet) })
	set("cuisine", func() { profile.CuisineType = pf.profile.CuisineType })
	return profile, nil
}
