package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"github.com/myrjola/fitplan/internal/plan"
	"github.com/myrjola/fitplan/internal/render"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func planLocation(id string) string {
	return "/api/plans/" + id
}

// planCreatePOST generates a plan for the profile in the body and archives it.
func (app *application) planCreatePOST(w http.ResponseWriter, r *http.Request) {
	profile, empty, ok := app.decodeProfile(w, r)
	if !ok {
		return
	}
	if empty {
		app.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "missing profile"})
		return
	}
	p, err := app.generator.Generate(r.Context(), profile)
	if err != nil {
		app.planError(w, r, err)
		return
	}
	app.saveAndRespond(w, r, p)
}

func (app *application) saveAndRespond(w http.ResponseWriter, r *http.Request, p plan.Plan) {
	if err := app.plans.Save(r.Context(), p); err != nil {
		app.serverError(w, r, err)
		return
	}
	w.Header().Set("Location", planLocation(p.ID))
	app.writeJSON(w, r, http.StatusCreated, p)
}

// planListGET lists the archived plans, newest first.
func (app *application) planListGET(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			app.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}
	summaries, err := app.plans.List(r.Context(), limit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []plan.Summary{}
	}
	app.writeJSON(w, r, http.StatusOK, summaries)
}

// loadPlan fetches the plan named by the id path parameter. On failure the response has been written.
func (app *application) loadPlan(w http.ResponseWriter, r *http.Request) (plan.Plan, bool) {
	id := r.PathValue("id")
	p, err := app.plans.Get(r.Context(), id)
	if err != nil {
		app.planError(w, r, err)
		return plan.Plan{}, false
	}
	return p, true
}

func (app *application) planGET(w http.ResponseWriter, r *http.Request) {
	p, ok := app.loadPlan(w, r)
	if !ok {
		return
	}
	app.writeJSON(w, r, http.StatusOK, p)
}

type regenerateFunc func(ctx context.Context, profile plan.UserProfile, current plan.Plan) (plan.Plan, error)

// planRegeneratePOST replaces one half of an archived plan. The body may carry an updated profile, otherwise the
// profile the plan was generated from is used. The result is archived as a new plan derived from the old one.
func (app *application) planRegeneratePOST(part string, regenerate regenerateFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, ok := app.loadPlan(w, r)
		if !ok {
			return
		}
		profile, empty, ok := app.decodeProfile(w, r)
		if !ok {
			return
		}
		if empty {
			profile = current.Profile
		}
		ctx := logging.WithAttrs(r.Context(), slog.String("regenerate", part))
		p, err := regenerate(ctx, profile, current)
		if err != nil {
			app.planError(w, r, err)
			return
		}
		app.saveAndRespond(w, r, p)
	}
}

// planPageGET renders the plan as an HTML page.
func (app *application) planPageGET(w http.ResponseWriter, r *http.Request) {
	p, ok := app.loadPlan(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.HTML(&buf, p); err != nil {
		app.serverError(w, r, errors.Wrap(err, "render html", slog.String("plan_id", p.ID)))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (app *application) planExportMarkdownGET(w http.ResponseWriter, r *http.Request) {
	p, ok := app.loadPlan(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.Markdown(&buf, p); err != nil {
		app.serverError(w, r, errors.Wrap(err, "render markdown", slog.String("plan_id", p.ID)))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fitplan-`+p.ID+`.md"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (app *application) planExportXLSXGET(w http.ResponseWriter, r *http.Request) {
	p, ok := app.loadPlan(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.XLSX(&buf, p); err != nil {
		app.serverError(w, r, errors.Wrap(err, "render xlsx", slog.String("plan_id", p.ID)))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="fitplan-`+p.ID+`.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
