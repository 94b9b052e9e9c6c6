package plan

import (
	"context"
	"log/slog"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/exercise"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/prompt"
)

// ErrNoExercises is returned by [WorkoutModel.Run] when the dataset is empty.
var ErrNoExercises = errors.NewSentinel("exercise data not available")

// Sender sends a prompt pair. [*generation.Service] implements it.
type Sender interface {
	Send(ctx context.Context, req generation.Request, opts ...generation.SendOption) (generation.Payload, error)
}

const workoutInstruction = "Please create a personalized WORKOUT PLAN ONLY based on these user preferences. " +
	"Focus exclusively on the exercise plan with a 5-day schedule. " +
	"Do not include any nutrition or diet information."

// promptUser is the {user} context shared by both prompts.
type promptUser struct {
	Weight                   float64 `json:"weight"`
	HeightCm                 float64 `json:"height_cm"`
	TimeConstraintMin        int     `json:"time_constraint_in_mins"`
	BMI                      float64 `json:"bmi"`
	BMICategory              string  `json:"bmi_category"`
	DietaryType              string  `json:"dietary_type"`
	CuisineType              string  `json:"cuisine_type"`
	Location                 string  `json:"location"`
	GoalWeight               float64 `json:"goal_weight"`
	DurationWeeks            int     `json:"duration_weeks"`
	Age                      int     `json:"age"`
	Gender                   string  `json:"gender"`
	ActivityLevel            string  `json:"activity_level"`
	ActivityMultiplier       float64 `json:"activity_multiplier"`
	DailyMaintenanceCalories float64 `json:"daily_maintenance_calories"`
	TotalCaloriesToBurn      float64 `json:"total_calories_to_burn"`
	DailyCalorieDeficit      float64 `json:"daily_calorie_deficit"`
	ExercisePortionCalories  float64 `json:"exercise_portion_calories"`
	DietPortionCalories      float64 `json:"diet_portion_calories"`
	TargetDailyIntake        float64 `json:"target_daily_intake"`
	ProteinTarget            float64 `json:"protein_target"`
	CarbsTarget              float64 `json:"carbs_target"`
	FatTarget                float64 `json:"fat_target"`
}

func newPromptUser(p UserProfile, t DerivedTargets) promptUser {
	return promptUser{
		Weight:                   p.WeightKg,
		HeightCm:                 p.HeightCm,
		TimeConstraintMin:        p.TimeConstraintMin,
		BMI:                      t.BMI,
		BMICategory:              string(t.BMICategory),
		DietaryType:              string(p.DietaryType),
		CuisineType:              p.CuisineType,
		Location:                 p.Location,
		GoalWeight:               p.GoalWeightKg,
		DurationWeeks:            p.DurationWeeks,
		Age:                      p.Age,
		Gender:                   string(p.Gender),
		ActivityLevel:            string(p.ActivityLevel),
		ActivityMultiplier:       t.ActivityMultiplier,
		DailyMaintenanceCalories: t.TDEE,
		TotalCaloriesToBurn:      t.TotalKcal,
		DailyCalorieDeficit:      t.DailyKcal,
		ExercisePortionCalories:  t.ExerciseKcal,
		DietPortionCalories:      t.DietKcal,
		TargetDailyIntake:        t.TargetDailyIntake,
		ProteinTarget:            t.Macros.ProteinG,
		CarbsTarget:              t.Macros.CarbsG,
		FatTarget:                t.Macros.FatG,
	}
}

// WorkoutFragment is the outcome of a successful [WorkoutModel.Run].
type WorkoutFragment struct {
	Plan       WorkoutPlan
	Validation Validation
}

// WorkoutModel generates the workout half of a plan.
type WorkoutModel struct {
	logger  *slog.Logger
	prompts *prompt.Manager
	sender  Sender
	dataset exercise.Dataset
}

// NewWorkoutModel creates a WorkoutModel choosing exercises from dataset.
func NewWorkoutModel(logger *slog.Logger, prompts *prompt.Manager, sender Sender, dataset exercise.Dataset) *WorkoutModel {
	return &WorkoutModel{
		logger:  logger,
		prompts: prompts,
		sender:  sender,
		dataset: dataset,
	}
}

// Run generates and validates a workout plan. Generation failures are returned as the [*generation.Failure] of
// the service. Validation issues don't fail the run.
func (m *WorkoutModel) Run(ctx context.Context, profile UserProfile, targets DerivedTargets) (WorkoutFragment, error) {
	if len(m.dataset.Records) == 0 {
		return WorkoutFragment{}, errors.Wrap(ErrNoExercises, "run workout model")
	}

	system, err := m.prompts.Format(prompt.Workout,
		prompt.Structured(newPromptUser(profile, targets)),
		map[string]prompt.Value{
			"exercise_data":             prompt.Structured(m.dataset.ForWeight(profile.WeightKg)),
			"constraint_time":           prompt.Int(profile.TimeConstraintMin),
			"exercise_portion_calories": prompt.Number(targets.ExerciseKcal),
		})
	if err != nil {
		return WorkoutFragment{}, errors.Wrap(err, "format workout prompt")
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "generating workout plan",
		slog.Float64("bmi", targets.BMI),
		slog.Int("time_constraint_minutes", profile.TimeConstraintMin),
		slog.Int("exercises", len(m.dataset.Records)))

	payload, err := m.sender.Send(ctx, generation.Request{System: system, User: workoutInstruction})
	if err != nil {
		return WorkoutFragment{}, err //nolint:wrapcheck // the *generation.Failure is propagated as is.
	}

	var fragment WorkoutFragment
	var section *WorkoutPlan
	if payload.Has("workout_plan") {
		section = new(WorkoutPlan)
		if err = payload.Decode("workout_plan", section); err != nil {
			return WorkoutFragment{}, sectionFailure(err, payload, "workout_plan")
		}
		fragment.Plan = *section
	}
	fragment.Validation = ValidateWorkout(section, profile.TimeConstraintMin)
	logValidation(ctx, m.logger, "workout", fragment.Validation)
	return fragment, nil
}

// sectionFailure reports a section that doesn't match the expected shape as a parse failure.
func sectionFailure(err error, payload generation.Payload, section string) error {
	return &generation.Failure{
		Kind:     generation.KindParse,
		Message:  "unexpected " + section + " structure: " + err.Error(),
		RawText:  string(payload[section]),
		Attempts: 0,
		Err:      err,
	}
}

func logValidation(ctx context.Context, logger *slog.Logger, part string, v Validation) {
	if v.Valid {
		logger.LogAttrs(ctx, slog.LevelInfo, "plan passed validation", slog.String("part", part))
		return
	}
	logger.LogAttrs(ctx, slog.LevelWarn, "plan has validation issues",
		slog.String("part", part),
		slog.Any("issues", v.Issues))
}
