package plan_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/myrjola/fitplan/internal/exercise"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/prompt"
	"github.com/myrjola/fitplan/internal/testhelpers"
)

// workoutReply echoes wrong numbers on purpose. The generator must never pass them on.
const workoutReply = `Here you go!
<output>
{
  "user_profile": {"current_weight": 1, "bmi": 99, "bmi_category": "Underweight"},
  "weight_loss_calculation": {"total_calories_to_burn": 1, "daily_calorie_deficit": 2,
    "exercise_portion_calories": 3, "diet_portion_calories": 4},
  "daily_calorie_intake": {"baseline_calories": 5, "diet_calorie_deficit": 6, "target_daily_intake": 7},
  "workout_plan": {
    "strategy": "Mix cardio and strength.",
    "weekly_plan": {
      "Monday": {"focus": "Cardio", "workouts": [
        {"name": "Brisk walking", "type": "cardio", "duration_mins": 30, "calories_burned": 160,
         "alternatives": ["Cycling", "Rowing"]},
        {"name": "Push-ups", "type": "strength", "duration_mins": "12 mins", "calories_burned": 96,
         "alternatives": ["Plank", "Squats"]}
      ], "total_time": 45, "total_calories": 256},
      "Tuesday": {"focus": "Strength", "workouts": [
        {"name": "Cycling", "type": "cardio", "duration_mins": 45, "calories_burned": 300, "alternatives": []}
      ], "total_time": "50", "total_calories": 300}
    },
    "rest_days": ["Saturday", "Sunday"]
  }
}
</output>`

const nutritionReply = `<output>
{
  "nutrition_plan": {
    "strategy": "High protein vegetarian meals.",
    "diet_preference": "Vegetarian",
    "daily_calories": 2300,
    "meals": {
      "Breakfast": {"calories": 589, "items": [
        {"name": "Poha", "quantity": "150 g", "calories": 300, "protein": 8, "carbs": 55, "fat": 6},
        {"name": "Milk", "quantity": 250, "calories": 150, "protein": 8, "carbs": 12, "fat": 8}
      ], "total_protein": 16, "total_carbs": 67, "total_fat": 14},
      "Morning_Snack": {},
      "Lunch": {"calories": 706},
      "Evening_Snack": {},
      "Dinner": {"calories": 589}
    },
    "macros": {"protein": 175, "carbs": 260, "fat": 66}
  }
}
</output>`

// fakeSender answers workout and nutrition prompts with canned replies.
type fakeSender struct {
	mu             sync.Mutex
	workoutCalls   int
	nutritionCalls int
	workoutText    string
	nutritionText  string
	workoutErr     error
	nutritionErr   error
	systems        []string
}

func newFakeSender() *fakeSender {
	return &fakeSender{workoutText: workoutReply, nutritionText: nutritionReply}
}

func (f *fakeSender) Send(_ context.Context, req generation.Request, _ ...generation.SendOption) (generation.Payload, error) {
	f.mu.Lock()
	f.systems = append(f.systems, req.System)
	text, err := f.nutritionText, f.nutritionErr
	if strings.Contains(req.User, "WORKOUT") {
		f.workoutCalls++
		text, err = f.workoutText, f.workoutErr
	} else {
		f.nutritionCalls++
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	p, extractErr := generation.ExtractPayload(text)
	if extractErr != nil {
		return nil, &generation.Failure{
			Kind: generation.KindParse, Message: extractErr.Error(), RawText: text, Attempts: 1, Err: extractErr,
		}
	}
	return p, nil
}

func (f *fakeSender) calls() (workout, nutrition int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workoutCalls, f.nutritionCalls
}

func testDataset() exercise.Dataset {
	return exercise.Dataset{
		Records: []exercise.Record{
			{ID: "1", Name: "Brisk walking", DurationMin: 30, CaloriesPerKg: 2, CaloriesPerMinute: 4, Attributes: nil},
			{ID: "2", Name: "Cycling", DurationMin: 60, CaloriesPerKg: 8, CaloriesPerMinute: 8, Attributes: nil},
		},
		Dropped: 0,
	}
}

// testProfile has BMR 1829.64, TDEE 2835.94 and a target intake of 2354.69 kcal.
func testProfile() plan.UserProfile {
	return plan.UserProfile{
		WeightKg:          80,
		HeightCm:          175,
		GoalWeightKg:      75,
		DurationWeeks:     8,
		Age:               30,
		Gender:            "Male",
		ActivityLevel:     "Moderately Active",
		TimeConstraintMin: 45,
		Location:          "Pune",
		DietaryType:       "vegetarian",
		CuisineType:       "Maharashtrian",
	}
}

func newGenerator(t *testing.T, sender plan.Sender, policy plan.ValidationPolicy) *plan.Generator {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	prompts, err := prompt.NewManager()
	if err != nil {
		t.Fatal(err)
	}
	return plan.NewGenerator(logger,
		plan.NewWorkoutModel(logger, prompts, sender, testDataset()),
		plan.NewNutritionModel(logger, prompts, sender),
		policy)
}

// overLimitWorkout is workoutReply with Monday taking 51 minutes, one more than a 45 minute budget allows.
func overLimitWorkout() string {
	return strings.Replace(workoutReply, `"total_time": 45`, `"total_time": 51`, 1)
}
