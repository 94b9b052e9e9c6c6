package plan_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/myrjola/fitplan/internal/plan"
)

func TestUserProfile_Normalize(t *testing.T) {
	p := plan.UserProfile{
		Gender:        " Female",
		ActivityLevel: "Lightly-Active",
		DietaryType:   "Non Vegetarian",
		Location:      "  Mumbai ",
		CuisineType:   "Konkani ",
	}.Normalize()

	want := plan.UserProfile{
		Gender:        fitness.GenderFemale,
		ActivityLevel: fitness.ActivityLightlyActive,
		DietaryType:   plan.NonVegetarian,
		Location:      "Mumbai",
		CuisineType:   "Konkani",
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *plan.UserProfile)
		issues []string
	}{
		{name: "valid", modify: func(*plan.UserProfile) {}},
		{
			name:   "goal equal to current weight",
			modify: func(p *plan.UserProfile) { p.GoalWeightKg = p.WeightKg },
		},
		{
			name:   "exactly one kg per week",
			modify: func(p *plan.UserProfile) { p.GoalWeightKg = 72 },
		},
		{
			name:   "goal above current weight",
			modify: func(p *plan.UserProfile) { p.GoalWeightKg = 85 },
			issues: []string{"goal weight must be less than current weight for weight loss"},
		},
		{
			name:   "too fast",
			modify: func(p *plan.UserProfile) { p.GoalWeightKg = 70 },
			issues: []string{"losing 10.0 kg in 8 weeks exceeds the healthy rate of 1 kg per week"},
		},
		{
			name: "everything reported at once",
			modify: func(p *plan.UserProfile) {
				p.HeightCm = 99
				p.Age = 17
				p.Gender = "other"
				p.TimeConstraintMin = 121
				p.DietaryType = "pescatarian"
				p.Location = strings.Repeat("x", 101)
			},
			issues: []string{
				"height must be between 100 and 250 cm, got 99",
				"age must be between 18 and 100, got 17",
				`gender must be male or female, got "other"`,
				"workout time must be between 15 and 120 minutes, got 121",
				`dietary type must be vegetarian, non_vegetarian, or vegan, got "pescatarian"`,
				"location must be at most 100 characters",
			},
		},
		{
			name: "rate not checked when a weight is out of range",
			modify: func(p *plan.UserProfile) {
				p.GoalWeightKg = 29
			},
			issues: []string{"goal weight must be between 30 and 300 kg, got 29"},
		},
		{
			name:   "missing activity level",
			modify: func(p *plan.UserProfile) { p.ActivityLevel = "" },
			issues: []string{"activity level is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile()
			tt.modify(&p)
			err := plan.ValidateProfile(p.Normalize())

			if len(tt.issues) == 0 {
				if err != nil {
					t.Fatalf("ValidateProfile() error = %v", err)
				}
				return
			}
			if !errors.Is(err, plan.ErrInvalidProfile) {
				t.Fatalf("ValidateProfile() error = %v, want %v", err, plan.ErrInvalidProfile)
			}
			var pe *plan.ProfileError
			if !errors.As(err, &pe) {
				t.Fatalf("ValidateProfile() error = %T, want *plan.ProfileError", err)
			}
			if diff := cmp.Diff(tt.issues, pe.Issues); diff != "" {
				t.Errorf("issues mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeriveTargets(t *testing.T) {
	targets, activityKnown, err := plan.DeriveTargets(testProfile().Normalize())
	if err != nil {
		t.Fatalf("DeriveTargets() error = %v", err)
	}
	if !activityKnown {
		t.Error("moderately active was not recognised")
	}

	want := plan.DerivedTargets{
		BMI:                26.12,
		BMICategory:        fitness.Overweight,
		BMR:                1829.64,
		TDEE:               2835.94,
		ActivityMultiplier: 1.55,
		WeightLoss: fitness.WeightLoss{
			TotalKcal:    38500,
			DailyKcal:    687.5,
			ExerciseKcal: 206.25,
			DietKcal:     481.25,
		},
		TargetDailyIntake: 2354.69,
		Macros: fitness.Macros{
			ProteinPct: 30, CarbsPct: 45, FatPct: 25,
			ProteinG: 176.6, CarbsG: 264.9, FatG: 65.41,
		},
		MealCalories: map[plan.MealSlot]float64{
			plan.Breakfast:    589,
			plan.MorningSnack: 235,
			plan.Lunch:        706,
			plan.EveningSnack: 235,
			plan.Dinner:       589,
		},
	}
	if diff := cmp.Diff(want, targets, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("DeriveTargets() mismatch (-want +got):\n%s", diff)
	}
	if sum := targets.ExerciseKcal + targets.DietKcal; sum != targets.DailyKcal {
		t.Errorf("exercise + diet = %v, want the daily deficit %v", sum, targets.DailyKcal)
	}
}

func TestDeriveTargets_UnknownActivity(t *testing.T) {
	p := testProfile()
	p.ActivityLevel = "couch potato"
	targets, activityKnown, err := plan.DeriveTargets(p.Normalize())
	if err != nil {
		t.Fatal(err)
	}
	if activityKnown {
		t.Error("activityKnown = true for an unknown level")
	}
	if targets.ActivityMultiplier != 1.2 {
		t.Errorf("ActivityMultiplier = %v, want the sedentary 1.2", targets.ActivityMultiplier)
	}
}

func TestDerivedTargets_Clone(t *testing.T) {
	targets, _, err := plan.DeriveTargets(testProfile().Normalize())
	if err != nil {
		t.Fatal(err)
	}
	c := targets.Clone()
	c.MealCalories[plan.Lunch] = 0
	if targets.MealCalories[plan.Lunch] != 706 {
		t.Error("Clone() shares the meal calories with the original")
	}
}
