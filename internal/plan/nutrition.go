package plan

import (
	"context"
	"log/slog"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/prompt"
)

const nutritionInstruction = "Please create a personalized NUTRITION PLAN ONLY based on these user preferences. " +
	"Focus exclusively on meal planning and macronutrient distribution. " +
	"Do not include any workout or exercise information."

type nutritionPromptUser struct {
	promptUser

	MacroTargets fitness.Macros       `json:"macro_targets"`
	MealCalories map[MealSlot]float64 `json:"meal_calories"`
}

// NutritionFragment is the outcome of a successful [NutritionModel.Run].
type NutritionFragment struct {
	Plan       NutritionPlan
	Validation Validation
}

// NutritionModel generates the nutrition half of a plan.
type NutritionModel struct {
	logger  *slog.Logger
	prompts *prompt.Manager
	sender  Sender
}

func NewNutritionModel(logger *slog.Logger, prompts *prompt.Manager, sender Sender) *NutritionModel {
	return &NutritionModel{
		logger:  logger,
		prompts: prompts,
		sender:  sender,
	}
}

// Run generates and validates a nutrition plan. It fails like [WorkoutModel.Run].
func (m *NutritionModel) Run(ctx context.Context, profile UserProfile, targets DerivedTargets) (NutritionFragment, error) {
	user := nutritionPromptUser{
		promptUser:   newPromptUser(profile, targets),
		MacroTargets: targets.Macros,
		MealCalories: targets.MealCalories,
	}
	system, err := m.prompts.Format(prompt.Nutrition, prompt.Structured(user), map[string]prompt.Value{
		"target_daily_intake": prompt.Number(targets.TargetDailyIntake),
		"dietary_type":        prompt.Text(string(profile.DietaryType)),
		"cuisine_type":        prompt.Text(profile.CuisineType),
		"location":            prompt.Text(profile.Location),
	})
	if err != nil {
		return NutritionFragment{}, errors.Wrap(err, "format nutrition prompt")
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "generating nutrition plan",
		slog.String("dietary_type", string(profile.DietaryType)),
		slog.String("cuisine_type", profile.CuisineType),
		slog.Float64("target_daily_intake", targets.TargetDailyIntake))

	payload, err := m.sender.Send(ctx, generation.Request{System: system, User: nutritionInstruction})
	if err != nil {
		return NutritionFragment{}, err //nolint:wrapcheck // the *generation.Failure is propagated as is.
	}

	var fragment NutritionFragment
	var section *NutritionPlan
	if payload.Has("nutrition_plan") {
		section = new(NutritionPlan)
		if err = payload.Decode("nutrition_plan", section); err != nil {
			return NutritionFragment{}, sectionFailure(err, payload, "nutrition_plan")
		}
		fragment.Plan = *section
	}
	fragment.Validation = ValidateNutrition(section, targets, profile.DietaryType)
	logValidation(ctx, m.logger, "nutrition", fragment.Validation)
	return fragment, nil
}
