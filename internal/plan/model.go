package plan

import (
	"time"

	"github.com/myrjola/fitplan/internal/fitness"
)

// WorkoutEntry is one exercise of a training day.
type WorkoutEntry struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	DurationMin    Number   `json:"duration_mins"`
	CaloriesBurned Number   `json:"calories_burned"`
	Alternatives   []string `json:"alternatives"`
}

// WorkoutDay is the schedule of one weekday.
type WorkoutDay struct {
	Focus         string         `json:"focus"`
	Workouts      []WorkoutEntry `json:"workouts"`
	TotalTime     *Number        `json:"total_time,omitempty"`
	TotalCalories *Number        `json:"total_calories,omitempty"`
}

// WorkoutPlan is the generated workout half of a plan.
type WorkoutPlan struct {
	Strategy   string                `json:"strategy,omitempty"`
	WeeklyPlan map[string]WorkoutDay `json:"weekly_plan"`
	RestDays   []string              `json:"rest_days"`
}

// FoodItem is one food of a meal.
type FoodItem struct {
	Name     string `json:"name"`
	Quantity Text   `json:"quantity"`
	Calories Number `json:"calories"`
	Protein  Number `json:"protein"`
	Carbs    Number `json:"carbs"`
	Fat      Number `json:"fat"`
}

// Meal is one meal slot.
type Meal struct {
	Calories     *Number    `json:"calories,omitempty"`
	Items        []FoodItem `json:"items,omitempty"`
	TotalProtein *Number    `json:"total_protein,omitempty"`
	TotalCarbs   *Number    `json:"total_carbs,omitempty"`
	TotalFat     *Number    `json:"total_fat,omitempty"`
}

// MacroSummary is the daily macronutrient total in grams as stated by the generated plan.
type MacroSummary struct {
	Protein *Number `json:"protein,omitempty"`
	Carbs   *Number `json:"carbs,omitempty"`
	Fat     *Number `json:"fat,omitempty"`
}

// NutritionPlan is the generated nutrition half of a plan.
type NutritionPlan struct {
	Strategy       string            `json:"strategy,omitempty"`
	DietPreference *string           `json:"diet_preference,omitempty"`
	DailyCalories  *Number           `json:"daily_calories,omitempty"`
	Meals          map[MealSlot]Meal `json:"meals"`
	Macros         *MacroSummary     `json:"macros,omitempty"`
}

// ProfileSummary is the user_profile section of an exported plan.
type ProfileSummary struct {
	CurrentWeight            float64             `json:"current_weight"`
	HeightCm                 float64             `json:"height_cm"`
	BMI                      float64             `json:"bmi"`
	BMICategory              fitness.BMICategory `json:"bmi_category"`
	GoalWeight               float64             `json:"goal_weight"`
	DurationWeeks            int                 `json:"duration_weeks"`
	DailyMaintenanceCalories float64             `json:"daily_maintenance_calories"`
	TimeConstraintMinutes    int                 `json:"time_constraint_minutes"`
}

// DailyIntake is the daily_calorie_intake section of an exported plan.
type DailyIntake struct {
	BaselineCalories   float64 `json:"baseline_calories"`
	DietCalorieDeficit float64 `json:"diet_calorie_deficit"`
	TargetDailyIntake  float64 `json:"target_daily_intake"`
}

// Plan is a complete generated plan.
//
// Its JSON encoding is the export format: the sections user_profile, weight_loss_calculation,
// daily_calorie_intake, workout_plan, and nutrition_plan plus the inputs and metadata needed to regenerate it.
type Plan struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	DerivedFrom string    `json:"derived_from,omitempty"`

	UserProfile           ProfileSummary     `json:"user_profile"`
	WeightLossCalculation fitness.WeightLoss `json:"weight_loss_calculation"`
	DailyCalorieIntake    DailyIntake        `json:"daily_calorie_intake"`
	WorkoutPlan           WorkoutPlan        `json:"workout_plan"`
	NutritionPlan         NutritionPlan      `json:"nutrition_plan"`

	Profile    UserProfile    `json:"profile"`
	Targets    DerivedTargets `json:"targets"`
	Validation PlanValidation `json:"validation"`
}

// PlanValidation keeps the validation results of both halves.
type PlanValidation struct {
	Workout   Validation `json:"workout"`
	Nutrition Validation `json:"nutrition"`
}

// Valid reports whether both halves passed validation.
func (v PlanValidation) Valid() bool {
	return v.Workout.Valid && v.Nutrition.Valid
}

// applyTargets overwrites every numeric section with values computed from profile and targets.
func (p *Plan) applyTargets(profile UserProfile, targets DerivedTargets) {
	p.Profile = profile
	p.Targets = targets
	p.UserProfile = ProfileSummary{
		CurrentWeight:            profile.WeightKg,
		HeightCm:                 profile.HeightCm,
		BMI:                      targets.BMI,
		BMICategory:              targets.BMICategory,
		GoalWeight:               profile.GoalWeightKg,
		DurationWeeks:            profile.DurationWeeks,
		DailyMaintenanceCalories: targets.TDEE,
		TimeConstraintMinutes:    profile.TimeConstraintMin,
	}
	p.WeightLossCalculation = targets.WeightLoss
	p.DailyCalorieIntake = DailyIntake{
		BaselineCalories:   targets.TDEE,
		DietCalorieDeficit: targets.DietKcal,
		TargetDailyIntake:  targets.TargetDailyIntake,
	}
}
