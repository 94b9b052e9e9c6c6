// Package render turns plans into documents for people: Markdown, an HTML page, and an Excel workbook.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates
var templateFS embed.FS

//nolint:gochecknoglobals // parsed once at start-up.
var (
	markdownTemplate = texttemplate.Must(
		texttemplate.New("plan.md.tmpl").Funcs(texttemplate.FuncMap{
			"num":    formatNumber,
			"optnum": formatOptional,
			"cell":   cell,
			"join":   func(s []string) string { return strings.Join(s, ", ") },
			"days":   days,
			"meals":  meals,
		}).ParseFS(templateFS, "templates/plan.md.tmpl"),
	)
	pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html.tmpl"))
	markdown     = goldmark.New(goldmark.WithExtensions(extension.Table))
)

// Markdown writes p as a Markdown document.
func Markdown(w io.Writer, p plan.Plan) error {
	if err := markdownTemplate.Execute(w, p); err != nil {
		return errors.Wrap(err, "execute markdown template")
	}
	return nil
}

// HTML writes p as a standalone HTML page. Raw HTML inside generated text is dropped.
func HTML(w io.Writer, p plan.Plan) error {
	var md bytes.Buffer
	if err := Markdown(&md, p); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := markdown.Convert(md.Bytes(), &body); err != nil {
		return errors.Wrap(err, "convert markdown")
	}
	data := struct {
		Title string
		Body  template.HTML
	}{
		Title: "Fitness plan " + p.ID,
		Body:  template.HTML(body.String()), //nolint:gosec // goldmark escapes generated text.
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return errors.Wrap(err, "execute page template")
	}
	return nil
}

type dayView struct {
	Name string
	plan.WorkoutDay
}

func days(p plan.WorkoutPlan) []dayView {
	out := make([]dayView, 0, len(p.WeeklyPlan))
	for _, name := range plan.SortedDays(p.WeeklyPlan) {
		out = append(out, dayView{Name: name, WorkoutDay: p.WeeklyPlan[name]})
	}
	return out
}

type mealView struct {
	Name plan.MealSlot
	plan.Meal
}

// meals lists the meals in eating order. Slots the plan doesn't have are skipped.
func meals(p plan.NutritionPlan) []mealView {
	var out []mealView
	for _, slot := range plan.MealSlots() {
		if m, ok := p.Meals[slot]; ok {
			out = append(out, mealView{Name: slot, Meal: m})
		}
	}
	return out
}

func formatNumber(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case plan.Number:
		return strconv.FormatFloat(n.Float(), 'f', -1, 64)
	case *plan.Number:
		return formatOptional(n)
	case int:
		return strconv.Itoa(n)
	default:
		return cell(v)
	}
}

func formatOptional(n *plan.Number) string {
	if n == nil {
		return "n/a"
	}
	return formatNumber(*n)
}

// cell makes v safe to put inside a Markdown table cell.
func cell(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case *string:
		if t != nil {
			s = *t
		}
	case plan.Text:
		s = string(t)
	case plan.MealSlot:
		s = strings.ReplaceAll(string(t), "_", " ")
	default:
		s = fmt.Sprint(v)
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
