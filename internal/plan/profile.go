package plan

import (
	"fmt"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
)

// ErrInvalidProfile is wrapped by [*ProfileError].
var ErrInvalidProfile = errors.NewSentinel("invalid profile")

// DietaryType restricts the food of the nutrition plan.
type DietaryType string

const (
	Vegetarian    DietaryType = "vegetarian"
	NonVegetarian DietaryType = "non_vegetarian"
	Vegan         DietaryType = "vegan"
)

// NormalizeDietaryType lowercases s and turns spaces and hyphens into underscores, e.g. "Non-Vegetarian" becomes
// non_vegetarian.
func NormalizeDietaryType(s string) DietaryType {
	s = strings.ToLower(strings.TrimSpace(s))
	return DietaryType(strings.NewReplacer(" ", "_", "-", "_").Replace(s))
}

func (d DietaryType) known() bool {
	return d == Vegetarian || d == NonVegetarian || d == Vegan
}

// UserProfile is the input of a plan request.
type UserProfile struct {
	WeightKg          float64               `json:"weight_kg"`
	HeightCm          float64               `json:"height_cm"`
	GoalWeightKg      float64               `json:"goal_weight_kg"`
	DurationWeeks     int                   `json:"duration_weeks"`
	Age               int                   `json:"age"`
	Gender            fitness.Gender        `json:"gender"`
	ActivityLevel     fitness.ActivityLevel `json:"activity_level"`
	TimeConstraintMin int                   `json:"time_constraint_minutes"`
	Location          string                `json:"location"`
	DietaryType       DietaryType           `json:"dietary_type"`
	CuisineType       string                `json:"cuisine_type"`
}

// Normalize returns a copy with the enumerated fields in canonical form and text fields trimmed.
func (p UserProfile) Normalize() UserProfile {
	p.Gender = fitness.Gender(strings.ToLower(strings.TrimSpace(string(p.Gender))))
	p.ActivityLevel = fitness.NormalizeActivityLevel(string(p.ActivityLevel))
	p.DietaryType = NormalizeDietaryType(string(p.DietaryType))
	p.Location = strings.TrimSpace(p.Location)
	p.CuisineType = strings.TrimSpace(p.CuisineType)
	return p
}

// ProfileError lists everything wrong with a profile.
type ProfileError struct {
	Issues []string
}

func (e *ProfileError) Error() string {
	return "invalid profile: " + strings.Join(e.Issues, "; ")
}

func (e *ProfileError) Unwrap() error {
	return ErrInvalidProfile
}

// Accepted input ranges.
const (
	MinHeightCm        = 100
	MaxHeightCm        = 250
	MinWeightKg        = 30
	MaxWeightKg        = 300
	MinDurationWeeks   = 1
	MaxDurationWeeks   = 52
	MinAge             = 18
	MaxAge             = 100
	MinTimeConstraint  = 15
	MaxTimeConstraint  = 120
	MaxWeeklyLossKg    = 1.0
	maxProfileTextSize = 100
)

// ValidateProfile checks p, which should be normalized, and returns a [*ProfileError] listing every problem.
//
// Unknown activity levels are accepted because [fitness.ActivityMultiplier] resolves them by substring or falls
// back to sedentary.
func ValidateProfile(p UserProfile) error {
	var issues []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			issues = append(issues, fmt.Sprintf(format, args...))
		}
	}

	check(p.HeightCm >= MinHeightCm && p.HeightCm <= MaxHeightCm,
		"height must be between %d and %d cm, got %v", MinHeightCm, MaxHeightCm, p.HeightCm)
	weightOK := p.WeightKg >= MinWeightKg && p.WeightKg <= MaxWeightKg
	check(weightOK, "current weight must be between %d and %d kg, got %v", MinWeightKg, MaxWeightKg, p.WeightKg)
	goalOK := p.GoalWeightKg >= MinWeightKg && p.GoalWeightKg <= MaxWeightKg
	check(goalOK, "goal weight must be between %d and %d kg, got %v", MinWeightKg, MaxWeightKg, p.GoalWeightKg)
	weeksOK := p.DurationWeeks >= MinDurationWeeks && p.DurationWeeks <= MaxDurationWeeks
	check(weeksOK, "duration must be between %d and %d weeks, got %d", MinDurationWeeks, MaxDurationWeeks,
		p.DurationWeeks)
	check(p.Age >= MinAge && p.Age <= MaxAge, "age must be between %d and %d, got %d", MinAge, MaxAge, p.Age)
	check(p.Gender == fitness.GenderMale || p.Gender == fitness.GenderFemale,
		"gender must be male or female, got %q", p.Gender)
	check(p.TimeConstraintMin >= MinTimeConstraint && p.TimeConstraintMin <= MaxTimeConstraint,
		"workout time must be between %d and %d minutes, got %d", MinTimeConstraint, MaxTimeConstraint,
		p.TimeConstraintMin)
	check(p.DietaryType.known(), "dietary type must be vegetarian, non_vegetarian, or vegan, got %q", p.DietaryType)
	check(p.ActivityLevel != "", "activity level is required")
	check(len(p.Location) <= maxProfileTextSize, "location must be at most %d characters", maxProfileTextSize)
	check(len(p.CuisineType) <= maxProfileTextSize, "cuisine type must be at most %d characters",
		maxProfileTextSize)

	if weightOK && goalOK && weeksOK {
		if p.GoalWeightKg > p.WeightKg {
			issues = append(issues, "goal weight must be less than current weight for weight loss")
		} else if diff := p.WeightKg - p.GoalWeightKg; diff/float64(p.DurationWeeks) > MaxWeeklyLossKg {
			issues = append(issues, fmt.Sprintf(
				"losing %.1f kg in %d weeks exceeds the healthy rate of %.0f kg per week",
				diff, p.DurationWeeks, MaxWeeklyLossKg))
		}
	}

	if len(issues) > 0 {
		return &ProfileError{Issues: issues}
	}
	return nil
}
