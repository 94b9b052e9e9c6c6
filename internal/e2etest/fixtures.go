package e2etest

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WorkoutReply is a valid workout reply for a 45 minute budget.
const WorkoutReply = `<output>
{
  "workout_plan": {
    "strategy": "Alternate cardio and strength.",
    "weekly_plan": {
      "Monday": {"focus": "Cardio", "workouts": [
        {"name": "Brisk walking", "type": "cardio", "duration_mins": 30, "calories_burned": 160,
         "alternatives": ["Cycling"]},
        {"name": "Push-ups", "type": "strength", "duration_mins": "15 mins", "calories_burned": 60,
         "alternatives": ["Plank"]}
      ], "total_time": 45, "total_calories": 220},
      "Wednesday": {"focus": "Endurance", "workouts": [
        {"name": "Cycling", "type": "cardio", "duration_mins": 40, "calories_burned": 320, "alternatives": []}
      ], "total_time": 40, "total_calories": 320}
    },
    "rest_days": ["Sunday"]
  }
}
</output>`

// NutritionReply is a valid vegetarian nutrition reply for a target of about 2350 kcal and 177 g protein.
const NutritionReply = `<output>
{
  "nutrition_plan": {
    "strategy": "Protein with every meal.",
    "diet_preference": "Vegetarian",
    "daily_calories": 2350,
    "meals": {
      "Breakfast": {"calories": 589, "items": [
        {"name": "Paneer bhurji", "quantity": "150 g", "calories": 400, "protein": 30, "carbs": 10, "fat": 25}
      ]},
      "Morning_Snack": {"calories": 235, "items": [
        {"name": "Greek yoghurt", "quantity": "200 g", "calories": 235, "protein": 20, "carbs": 15, "fat": 8}
      ]},
      "Lunch": {"calories": 706},
      "Evening_Snack": {"calories": 235},
      "Dinner": {"calories": 589}
    },
    "macros": {"protein": 178, "carbs": 260, "fat": 66}
  }
}
</output>`

// DatasetCSV is a small exercise dataset.
const DatasetCSV = `id,name,exercise_duration,calories_burned_per_kg
1,Brisk walking,30,2
2,Cycling,60,8
3,Push-ups,15,1
`

// CannedReply answers workout prompts with WorkoutReply and everything else with NutritionReply.
func CannedReply(_, user string) (int, string) {
	if strings.Contains(user, "WORKOUT") {
		return http.StatusOK, WorkoutReply
	}
	return http.StatusOK, NutritionReply
}

// WriteDataset writes DatasetCSV to a temporary file and returns its path.
func WriteDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "exercises.csv")
	if err := os.WriteFile(path, []byte(DatasetCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
