// Package fitness implements the deterministic body metrics used to derive plan targets.
//
// All functions are pure. Values that are shown to users are rounded to two decimals.
package fitness

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
)

// ErrInvalidInput is returned for biometric values that can't be computed with.
var ErrInvalidInput = errors.NewSentinel("invalid input")

// Gender selects the Harris-Benedict coefficients.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender normalizes s, e.g. "Male", to a Gender.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale:
		return g, nil
	default:
		return "", errors.Wrap(ErrInvalidInput, "unknown gender", slog.String("gender", s))
	}
}

// ActivityLevel describes how active the user is outside planned workouts.
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "sedentary"
	ActivityLightlyActive    ActivityLevel = "lightly_active"
	ActivityModeratelyActive ActivityLevel = "moderately_active"
	ActivityVeryActive       ActivityLevel = "very_active"
	ActivityExtraActive      ActivityLevel = "extra_active"
)

// ActivityLevels lists the known levels from least to most active.
func ActivityLevels() []ActivityLevel {
	return []ActivityLevel{
		ActivitySedentary,
		ActivityLightlyActive,
		ActivityModeratelyActive,
		ActivityVeryActive,
		ActivityExtraActive,
	}
}

//nolint:gochecknoglobals // lookup table.
var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:        1.2,
	ActivityLightlyActive:    1.375,
	ActivityModeratelyActive: 1.55,
	ActivityVeryActive:       1.725,
	ActivityExtraActive:      1.9,
}

// BMICategory is the WHO weight class for a BMI value.
type BMICategory string

const (
	Underweight BMICategory = "Underweight"
	Normal      BMICategory = "Normal"
	Overweight  BMICategory = "Overweight"
	Obese       BMICategory = "Obese"
)

const (
	// KcalPerKgFat is the energy deficit needed to lose one kilogram of body fat.
	KcalPerKgFat = 7700
	// ExerciseShare of the daily deficit is burned by working out, the rest comes from the diet.
	ExerciseShare = 0.3
	DietShare     = 0.7

	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9

	// highActivityThreshold is the multiplier above which the carb-heavier macro split is used.
	highActivityThreshold = 1.55
)

// round2 rounds to two decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100 //nolint:mnd // two decimals.
}

// BMI returns weight / height(m)² rounded to two decimals.
func BMI(weightKg, heightCm float64) (float64, error) {
	if heightCm <= 0 {
		return 0, errors.Wrap(ErrInvalidInput, "height must be greater than 0", slog.Float64("height_cm", heightCm))
	}
	if weightKg <= 0 {
		return 0, errors.Wrap(ErrInvalidInput, "weight must be greater than 0", slog.Float64("weight_kg", weightKg))
	}
	heightM := heightCm / 100 //nolint:mnd // cm to m.
	return round2(weightKg / (heightM * heightM)), nil
}

// CategoryFor classifies bmi using half-open intervals. Everything from 30 up is Obese.
func CategoryFor(bmi float64) BMICategory {
	switch {
	case bmi < 18.5: //nolint:mnd // WHO threshold.
		return Underweight
	case bmi < 25: //nolint:mnd // WHO threshold.
		return Normal
	case bmi < 30: //nolint:mnd // WHO threshold.
		return Overweight
	default:
		return Obese
	}
}

// BMR returns the basal metabolic rate in kcal/day using the revised Harris-Benedict equation.
func BMR(weightKg, heightCm float64, age int, gender Gender) (float64, error) {
	a := float64(age)
	switch gender {
	case GenderMale:
		return round2(88.362 + 13.397*weightKg + 4.799*heightCm - 5.677*a), nil //nolint:mnd // Harris-Benedict.
	case GenderFemale:
		return round2(447.593 + 9.247*weightKg + 3.098*heightCm - 4.330*a), nil //nolint:mnd // Harris-Benedict.
	default:
		return 0, errors.Wrap(ErrInvalidInput, "gender must be male or female", slog.String("gender", string(gender)))
	}
}

// NormalizeActivityLevel lowercases s and turns spaces and hyphens into underscores so that both
// "Lightly Active" and "lightly_active" resolve to the same level.
func NormalizeActivityLevel(s string) ActivityLevel {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return ActivityLevel(s)
}

// ActivityMultiplier looks up the TDEE multiplier for level.
//
// An exact match is tried first, then a known level contained in level, e.g. "very_active_runner". Unknown levels
// fall back to the sedentary multiplier and ok is false so that the caller can warn about it.
func ActivityMultiplier(level ActivityLevel) (multiplier float64, ok bool) {
	level = NormalizeActivityLevel(string(level))
	if m, found := activityMultipliers[level]; found {
		return m, true
	}
	// Longest keys first so that "very_active" isn't shadowed by a shorter match.
	for _, known := range []ActivityLevel{
		ActivityModeratelyActive, ActivityLightlyActive, ActivityExtraActive, ActivityVeryActive, ActivitySedentary,
	} {
		if strings.Contains(string(level), string(known)) {
			return activityMultipliers[known], true
		}
	}
	return activityMultipliers[ActivitySedentary], false
}

// TDEE returns bmr scaled by the activity multiplier, rounded to two decimals.
func TDEE(bmr float64, level ActivityLevel) float64 {
	m, _ := ActivityMultiplier(level)
	return round2(bmr * m)
}

// WeightLoss is the calorie deficit needed to reach a goal weight.
type WeightLoss struct {
	TotalKcal    float64 `json:"total_calories_to_burn"`
	DailyKcal    float64 `json:"daily_calorie_deficit"`
	ExerciseKcal float64 `json:"exercise_portion_calories"`
	DietKcal     float64 `json:"diet_portion_calories"`
}

// SplitWeightLoss computes the deficit for losing weight from current to goal in the given weeks.
//
// A goal at or above the current weight means nothing to lose, so every value is zero. With weeks <= 0 the daily
// deficit is zero rather than undefined.
func SplitWeightLoss(currentKg, goalKg float64, weeks int) WeightLoss {
	toLose := max(currentKg-goalKg, 0)
	total := toLose * KcalPerKgFat
	var daily float64
	if days := weeks * 7; days > 0 { //nolint:mnd // days per week.
		daily = total / float64(days)
	}
	return WeightLoss{
		TotalKcal:    round2(total),
		DailyKcal:    round2(daily),
		ExerciseKcal: round2(daily * ExerciseShare),
		DietKcal:     round2(daily * DietShare),
	}
}

// Macros is a daily macronutrient target.
type Macros struct {
	ProteinPct float64 `json:"protein_pct"`
	CarbsPct   float64 `json:"carbs_pct"`
	FatPct     float64 `json:"fat_pct"`
	ProteinG   float64 `json:"protein"`
	CarbsG     float64 `json:"carbs"`
	FatG       float64 `json:"fat"`
}

// SplitMacros divides intakeKcal into protein, carbs, and fat.
//
// Up to moderately active (multiplier <= 1.55) the split is 30/45/25 percent, above it 30/50/20. The same split
// must be used for deriving targets and for validating generated plans.
func SplitMacros(intakeKcal, activityMultiplier float64) Macros {
	protein, carbs, fat := 30.0, 45.0, 25.0
	if activityMultiplier > highActivityThreshold {
		carbs, fat = 50, 20
	}
	return Macros{
		ProteinPct: protein,
		CarbsPct:   carbs,
		FatPct:     fat,
		ProteinG:   round2(intakeKcal * protein / 100 / kcalPerGramProtein),
		CarbsG:     round2(intakeKcal * carbs / 100 / kcalPerGramCarbs),
		FatG:       round2(intakeKcal * fat / 100 / kcalPerGramFat),
	}
}

// Kcal returns the energy of the macro grams.
func (m Macros) Kcal() float64 {
	return m.ProteinG*kcalPerGramProtein + m.CarbsG*kcalPerGramCarbs + m.FatG*kcalPerGramFat
}

// ExerciseCalories is the energy a person of weightKg burns in one session of an exercise rated at caloriesPerKg.
func ExerciseCalories(caloriesPerKg, weightKg float64) float64 {
	return round2(caloriesPerKg * weightKg)
}

// CaloriesPerMinute normalizes a per-kg burn rating over a session of durationMin minutes.
func CaloriesPerMinute(caloriesPerKg, durationMin float64) (float64, error) {
	if durationMin <= 0 {
		return 0, fmt.Errorf("%w: duration must be greater than 0, got %v", ErrInvalidInput, durationMin)
	}
	return caloriesPerKg / (durationMin / 60), nil //nolint:mnd // minutes per hour.
}
