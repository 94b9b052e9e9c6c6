package plan

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
)

// Validation tolerances.
const (
	TimeBufferMin         = 5
	CalorieTolerancePct   = 10
	ProteinToleranceGrams = 5
)

// Validation is the outcome of checking a generated half against the targets. It never changes the plan.
type Validation struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

func newValidation(issues []string) Validation {
	return Validation{Valid: len(issues) == 0, Issues: issues}
}

// ValidationPolicy decides what happens to plans with validation issues.
type ValidationPolicy string

const (
	// PolicyWarn returns the plan with the issues attached.
	PolicyWarn ValidationPolicy = "warn"
	// PolicyReject turns issues into a [*ValidationError].
	PolicyReject ValidationPolicy = "reject"
)

// ErrUnknownPolicy is returned by [ParseValidationPolicy].
var ErrUnknownPolicy = errors.NewSentinel("unknown validation policy")

// ParseValidationPolicy accepts "warn" and "reject" in any case.
func ParseValidationPolicy(s string) (ValidationPolicy, error) {
	switch p := ValidationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyWarn, PolicyReject:
		return p, nil
	default:
		return "", errors.Wrap(ErrUnknownPolicy, "parse validation policy", slog.String("policy", s))
	}
}

// ValidationError is returned under [PolicyReject].
type ValidationError struct {
	Part   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s plan failed validation: %s", e.Part, strings.Join(e.Issues, "; "))
}

// weekdayOrder sorts days Monday first. Unknown names sort last, alphabetically.
func weekdayOrder(day string) int {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(day, d.String()) {
			return (int(d) + 6) % 7 //nolint:mnd // Monday is 0.
		}
	}
	return 7 //nolint:mnd // after Sunday.
}

// SortedDays returns the days of a weekly plan Monday first.
func SortedDays(weekly map[string]WorkoutDay) []string {
	days := make([]string, 0, len(weekly))
	for d := range weekly {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b string) int {
		return cmp.Or(cmp.Compare(weekdayOrder(a), weekdayOrder(b)), strings.Compare(a, b))
	})
	return days
}

// ValidateWorkout checks the weekly plan against the daily time budget. A day may last at most
// timeConstraintMin + 5 minutes, and every listed day needs at least one workout.
func ValidateWorkout(p *WorkoutPlan, timeConstraintMin int) Validation {
	if p == nil {
		return newValidation([]string{"workout plan section missing from response"})
	}
	if p.WeeklyPlan == nil {
		return newValidation([]string{"weekly plan missing from workout plan"})
	}

	maxAllowed := float64(timeConstraintMin + TimeBufferMin)
	var issues []string
	for _, day := range SortedDays(p.WeeklyPlan) {
		d := p.WeeklyPlan[day]
		switch {
		case d.TotalTime == nil:
			issues = append(issues, fmt.Sprintf("total time missing for %s", day))
		case d.TotalTime.Float() > maxAllowed:
			issues = append(issues, fmt.Sprintf("%s's workout exceeds time constraint: %v mins > %v mins",
				day, d.TotalTime.Float(), maxAllowed))
		}
		if len(d.Workouts) == 0 {
			issues = append(issues, fmt.Sprintf("no workouts specified for %s", day))
		}
	}
	return newValidation(issues)
}

// ValidateNutrition checks that all meals are there and that the stated diet, calories, and protein match the
// targets. Carbs and fat are not checked.
func ValidateNutrition(p *NutritionPlan, targets DerivedTargets, diet DietaryType) Validation {
	if p == nil {
		return newValidation([]string{"nutrition plan section missing from response"})
	}
	if p.Meals == nil {
		return newValidation([]string{"meals missing from nutrition plan"})
	}

	var issues []string
	for _, slot := range MealSlots() {
		if _, ok := p.Meals[slot]; !ok {
			issues = append(issues, fmt.Sprintf("missing meal: %s", slot))
		}
	}

	if p.DietPreference != nil && NormalizeDietaryType(*p.DietPreference) != NormalizeDietaryType(string(diet)) {
		issues = append(issues, fmt.Sprintf("diet preference mismatch: expected %s, got %s", diet, *p.DietPreference))
	}

	if p.DailyCalories != nil && targets.TargetDailyIntake > 0 {
		actual := p.DailyCalories.Float()
		deviationPct := math.Abs(targets.TargetDailyIntake-actual) / targets.TargetDailyIntake * 100 //nolint:mnd // %.
		if deviationPct > CalorieTolerancePct {
			issues = append(issues, fmt.Sprintf(
				"total calories deviate too much from target: %v vs %v (%.1f%% difference)",
				actual, targets.TargetDailyIntake, deviationPct))
		}
	}

	if p.Macros != nil && p.Macros.Protein != nil {
		actual := p.Macros.Protein.Float()
		if math.Abs(targets.Macros.ProteinG-actual) > ProteinToleranceGrams {
			issues = append(issues, fmt.Sprintf("protein deviates too much from target: %vg vs %vg",
				actual, targets.Macros.ProteinG))
		}
	}

	return newValidation(issues)
}
