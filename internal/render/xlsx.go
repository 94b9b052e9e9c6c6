package render

import (
	"io"
	"log/slog"
	"strings"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/ptr"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetSummary   = "Summary"
	SheetWorkout   = "Workout"
	SheetNutrition = "Nutrition"
)

// sheetWriter appends rows to one sheet and remembers the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (s *sheetWriter) add(values ...any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		s.err = errors.Wrap(err, "cell name")
		return
	}
	if err = s.f.SetSheetRow(s.sheet, cell, &values); err != nil {
		s.err = errors.Wrap(err, "set row")
	}
}

func (s *sheetWriter) blank() {
	s.row++
}

// XLSX writes p as an Excel workbook with a summary, a workout, and a nutrition sheet.
func XLSX(w io.Writer, p plan.Plan) (err error) {
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "close workbook")
		}
	}()

	if err = f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	for _, name := range []string{SheetWorkout, SheetNutrition} {
		if _, err = f.NewSheet(name); err != nil {
			return errors.Wrap(err, "new sheet", slog.String("sheet", name))
		}
	}

	writers := []func(*sheetWriter, plan.Plan){writeSummary, writeWorkout, writeNutrition}
	for i, name := range []string{SheetSummary, SheetWorkout, SheetNutrition} {
		s := &sheetWriter{f: f, sheet: name, row: 0, err: nil}
		writers[i](s, p)
		if s.err != nil {
			return errors.Wrap(s.err, "write sheet", slog.String("sheet", name))
		}
	}
	f.SetActiveSheet(0)

	if err = f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func writeSummary(s *sheetWriter, p plan.Plan) {
	s.add("Plan", p.ID)
	s.add("Created", p.CreatedAt.Format("2006-01-02 15:04 MST"))
	if p.DerivedFrom != "" {
		s.add("Regenerated from", p.DerivedFrom)
	}
	s.blank()
	s.add("Current weight (kg)", p.UserProfile.CurrentWeight)
	s.add("Height (cm)", p.UserProfile.HeightCm)
	s.add("BMI", p.UserProfile.BMI)
	s.add("BMI category", string(p.UserProfile.BMICategory))
	s.add("Goal weight (kg)", p.UserProfile.GoalWeight)
	s.add("Duration (weeks)", p.UserProfile.DurationWeeks)
	s.add("Workout time (min/day)", p.UserProfile.TimeConstraintMinutes)
	s.blank()
	s.add("Maintenance calories", p.UserProfile.DailyMaintenanceCalories)
	s.add("Total calories to burn", p.WeightLossCalculation.TotalKcal)
	s.add("Daily deficit", p.WeightLossCalculation.DailyKcal)
	s.add("Burned by exercise", p.WeightLossCalculation.ExerciseKcal)
	s.add("Cut from diet", p.WeightLossCalculation.DietKcal)
	s.add("Target daily intake", p.DailyCalorieIntake.TargetDailyIntake)
	s.blank()
	s.add("Protein target (g)", p.Targets.Macros.ProteinG)
	s.add("Carbs target (g)", p.Targets.Macros.CarbsG)
	s.add("Fat target (g)", p.Targets.Macros.FatG)
	for _, issue := range p.Validation.Workout.Issues {
		s.add("Workout issue", issue)
	}
	for _, issue := range p.Validation.Nutrition.Issues {
		s.add("Nutrition issue", issue)
	}
}

func writeWorkout(s *sheetWriter, p plan.Plan) {
	s.add("Day", "Focus", "Exercise", "Type", "Minutes", "kcal", "Alternatives")
	for _, d := range days(p.WorkoutPlan) {
		for _, w := range d.Workouts {
			s.add(d.Name, d.Focus, w.Name, w.Type, w.DurationMin.Float(), w.CaloriesBurned.Float(),
				strings.Join(w.Alternatives, ", "))
		}
		s.add(d.Name, "Total", "", "",
			ptr.Deref(d.TotalTime, 0).Float(), ptr.Deref(d.TotalCalories, 0).Float(), "")
	}
	if len(p.WorkoutPlan.RestDays) > 0 {
		s.blank()
		s.add("Rest days", strings.Join(p.WorkoutPlan.RestDays, ", "))
	}
}

func writeNutrition(s *sheetWriter, p plan.Plan) {
	s.add("Meal", "Food", "Quantity", "kcal", "Protein (g)", "Carbs (g)", "Fat (g)")
	for _, m := range meals(p.NutritionPlan) {
		for _, item := range m.Items {
			s.add(string(m.Name), item.Name, string(item.Quantity), item.Calories.Float(), item.Protein.Float(),
				item.Carbs.Float(), item.Fat.Float())
		}
		s.add(string(m.Name), "Total", "", ptr.Deref(m.Calories, 0).Float(), ptr.Deref(m.TotalProtein, 0).Float(),
			ptr.Deref(m.TotalCarbs, 0).Float(), ptr.Deref(m.TotalFat, 0).Float())
	}
}
