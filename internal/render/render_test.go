package render_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/ptr"
	"github.com/myrjola/fitplan/internal/render"
	"github.com/xuri/excelize/v2"
)

func testPlan() plan.Plan {
	return plan.Plan{
		ID:          "7b0c5a43-5a0e-4f4e-9a57-0c1ae5b3c2d1",
		CreatedAt:   time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC),
		DerivedFrom: "",
		UserProfile: plan.ProfileSummary{
			CurrentWeight:            80,
			HeightCm:                 175,
			BMI:                      26.12,
			BMICategory:              fitness.Overweight,
			GoalWeight:               75,
			DurationWeeks:            8,
			DailyMaintenanceCalories: 2835.94,
			TimeConstraintMinutes:    45,
		},
		WeightLossCalculation: fitness.WeightLoss{TotalKcal: 38500, DailyKcal: 687.5, ExerciseKcal: 206.25, DietKcal: 481.25},
		DailyCalorieIntake:    plan.DailyIntake{BaselineCalories: 2835.94, DietCalorieDeficit: 481.25, TargetDailyIntake: 2354.69},
		WorkoutPlan: plan.WorkoutPlan{
			Strategy: "Mix <script>alert(1)</script> cardio and strength.",
			WeeklyPlan: map[string]plan.WorkoutDay{
				"Tuesday": {Focus: "Strength", Workouts: []plan.WorkoutEntry{
					{Name: "Squats", Type: "strength", DurationMin: 20, CaloriesBurned: 120, Alternatives: nil},
				}, TotalTime: ptr.Ref[plan.Number](20), TotalCalories: nil},
				"Monday": {Focus: "Cardio", Workouts: []plan.WorkoutEntry{
					{Name: "Brisk walking", Type: "cardio", DurationMin: 30, CaloriesBurned: 160,
						Alternatives: []string{"Cycling", "Rowing | erg"}},
				}, TotalTime: ptr.Ref[plan.Number](30), TotalCalories: ptr.Ref[plan.Number](160)},
			},
			RestDays: []string{"Saturday", "Sunday"},
		},
		NutritionPlan: plan.NutritionPlan{
			Strategy:       "High protein.",
			DietPreference: ptr.Ref("vegetarian"),
			DailyCalories:  ptr.Ref[plan.Number](2300),
			Meals: map[plan.MealSlot]plan.Meal{
				plan.Dinner: {Calories: ptr.Ref[plan.Number](589)},
				plan.Breakfast: {Calories: ptr.Ref[plan.Number](589), Items: []plan.FoodItem{
					{Name: "Poha", Quantity: "150 g", Calories: 300, Protein: 8, Carbs: 55, Fat: 6},
				}},
			},
			Macros: &plan.MacroSummary{Protein: ptr.Ref[plan.Number](175)},
		},
		Targets: plan.DerivedTargets{Macros: fitness.Macros{ProteinG: 176.6, CarbsG: 264.9, FatG: 65.41}},
		Validation: plan.PlanValidation{
			Workout:   plan.Validation{Valid: true},
			Nutrition: plan.Validation{Valid: false, Issues: []string{"missing meal: Lunch"}},
		},
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := render.Markdown(&buf, testPlan()); err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	md := buf.String()

	for _, want := range []string{
		"# Fitness plan",
		"created 15 Oct 2026 08:30 UTC.",
		"| BMI | 26.12 (Overweight) |",
		"| Daily intake | 2354.69 |",
		"176.6 g protein",
		"| Brisk walking | cardio | 30 | 160 | Cycling, Rowing \\| erg |",
		"Total: 20 min, n/a kcal.",
		"Rest days: Saturday, Sunday.",
		"| Poha | 150 g | 300 | 8 | 55 | 6 |",
		"- Nutrition: missing meal: Lunch",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown does not contain %q\n%s", want, md)
		}
	}
	if strings.Index(md, "### Monday") > strings.Index(md, "### Tuesday") {
		t.Error("Tuesday is listed before Monday")
	}
	if strings.Index(md, "### Breakfast") > strings.Index(md, "### Dinner") {
		t.Error("Dinner is listed before Breakfast")
	}
	if strings.Contains(md, "### Lunch") {
		t.Error("missing Lunch was rendered")
	}
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := render.HTML(&buf, testPlan()); err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if got := doc.Find("title").Text(); got != "Fitness plan 7b0c5a43-5a0e-4f4e-9a57-0c1ae5b3c2d1" {
		t.Errorf("title = %q", got)
	}
	var headings []string
	doc.Find("main h3").Each(func(_ int, s *goquery.Selection) {
		headings = append(headings, s.Text())
	})
	want := []string{"Monday: Cardio", "Tuesday: Strength", "Breakfast (589 kcal)", "Dinner (589 kcal)"}
	if diff := cmp.Diff(want, headings); diff != "" {
		t.Errorf("headings mismatch (-want +got):\n%s", diff)
	}
	if n := doc.Find("main table").Length(); n != 5 {
		t.Errorf("found %d tables, want 5", n)
	}
	alt := doc.Find("main table").Eq(2).Find("tbody td").Last().Text()
	if alt != "Cycling, Rowing | erg" {
		t.Errorf("alternatives cell = %q", alt)
	}
	if doc.Find("script").Length() != 0 {
		t.Error("generated text injected a script element")
	}
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := render.XLSX(&buf, testPlan()); err != nil {
		t.Fatalf("XLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{render.SheetSummary, render.SheetWorkout, render.SheetNutrition},
		f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	workout, err := f.GetRows(render.SheetWorkout)
	if err != nil {
		t.Fatal(err)
	}
	wantWorkout := [][]string{
		{"Day", "Focus", "Exercise", "Type", "Minutes", "kcal", "Alternatives"},
		{"Monday", "Cardio", "Brisk walking", "cardio", "30", "160", "Cycling, Rowing | erg"},
		{"Monday", "Total", "", "", "30", "160"},
		{"Tuesday", "Strength", "Squats", "strength", "20", "120"},
		{"Tuesday", "Total", "", "", "20", "0"},
		nil,
		{"Rest days", "Saturday, Sunday"},
	}
	if diff := cmp.Diff(wantWorkout, workout, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("workout rows mismatch (-want +got):\n%s", diff)
	}

	target, err := f.GetCellValue(render.SheetSummary, "B17")
	if err != nil {
		t.Fatal(err)
	}
	if target != "2354.69" {
		t.Errorf("target daily intake cell = %q, want 2354.69", target)
	}
	nutrition, err := f.GetRows(render.SheetNutrition)
	if err != nil {
		t.Fatal(err)
	}
	if len(nutrition) != 4 || nutrition[1][1] != "Poha" || nutrition[3][0] != string(plan.Dinner) {
		t.Errorf("nutrition rows = %v", nutrition)
	}
}
