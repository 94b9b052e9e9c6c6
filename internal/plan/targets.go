package plan

import (
	"maps"
	"math"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
)

// MealSlot names one of the five daily meals.
type MealSlot string

const (
	Breakfast    MealSlot = "Breakfast"
	MorningSnack MealSlot = "Morning_Snack"
	Lunch        MealSlot = "Lunch"
	EveningSnack MealSlot = "Evening_Snack"
	Dinner       MealSlot = "Dinner"
)

// MealSlots lists the meals in the order they're eaten.
func MealSlots() []MealSlot {
	return []MealSlot{Breakfast, MorningSnack, Lunch, EveningSnack, Dinner}
}

//nolint:gochecknoglobals // lookup table.
var mealShares = map[MealSlot]float64{
	Breakfast:    0.25,
	MorningSnack: 0.10,
	Lunch:        0.30,
	EveningSnack: 0.10,
	Dinner:       0.25,
}

// DerivedTargets are the numbers every plan is built around. They are computed once per request by
// [DeriveTargets] and only ever copied afterwards.
type DerivedTargets struct {
	BMI                float64             `json:"bmi"`
	BMICategory        fitness.BMICategory `json:"bmi_category"`
	BMR                float64             `json:"bmr"`
	TDEE               float64             `json:"tdee"`
	ActivityMultiplier float64             `json:"activity_multiplier"`
	fitness.WeightLoss
	TargetDailyIntake float64              `json:"target_daily_intake"`
	Macros            fitness.Macros       `json:"macro_targets"`
	MealCalories      map[MealSlot]float64 `json:"meal_calories"`
}

// DeriveTargets computes the targets for a valid profile.
//
// activityKnown is false when the activity level had to fall back to sedentary.
func DeriveTargets(p UserProfile) (_ DerivedTargets, activityKnown bool, _ error) {
	bmi, err := fitness.BMI(p.WeightKg, p.HeightCm)
	if err != nil {
		return DerivedTargets{}, false, errors.Wrap(err, "bmi")
	}
	bmr, err := fitness.BMR(p.WeightKg, p.HeightCm, p.Age, p.Gender)
	if err != nil {
		return DerivedTargets{}, false, errors.Wrap(err, "bmr")
	}
	multiplier, activityKnown := fitness.ActivityMultiplier(p.ActivityLevel)
	tdee := fitness.TDEE(bmr, p.ActivityLevel)
	loss := fitness.SplitWeightLoss(p.WeightKg, p.GoalWeightKg, p.DurationWeeks)
	intake := math.Round((tdee-loss.DietKcal)*100) / 100 //nolint:mnd // two decimals.

	meals := make(map[MealSlot]float64, len(mealShares))
	for slot, share := range mealShares {
		meals[slot] = math.Round(intake * share)
	}

	return DerivedTargets{
		BMI:                bmi,
		BMICategory:        fitness.CategoryFor(bmi),
		BMR:                bmr,
		TDEE:               tdee,
		ActivityMultiplier: multiplier,
		WeightLoss:         loss,
		TargetDailyIntake:  intake,
		Macros:             fitness.SplitMacros(intake, multiplier),
		MealCalories:       meals,
	}, activityKnown, nil
}

// Clone returns a deep copy so that workers never share the meal map.
func (t DerivedTargets) Clone() DerivedTargets {
	t.MealCalories = maps.Clone(t.MealCalories)
	return t
}
