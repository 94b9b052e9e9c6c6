package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/fitplan/internal/contexthelpers"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/fitness"
	"github.com/myrjola/fitplan/internal/generation"
	"github.com/myrjola/fitplan/internal/plan"
)

// maxBodyBytes bounds request bodies. A profile is a few hundred bytes.
const maxBodyBytes = 64 << 10

// errorResponse is the body of every failed API request.
type errorResponse struct {
	Error   string   `json:"error"`
	Issues  []string `json:"issues,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	RawText string   `json:"raw_text,omitempty"`
	TraceID string   `json:"trace_id,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	resp.TraceID = contexthelpers.TraceID(r.Context())
	app.writeJSON(w, r, status, resp)
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeError(w, r, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.writeError(w, r, http.StatusNotFound, errorResponse{Error: "plan not found"})
}

// planError maps errors of the plan package to responses. Anything unknown is a server error.
func (app *application) planError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		profileErr    *plan.ProfileError
		validationErr *plan.ValidationError
		failure       *generation.Failure
	)
	switch {
	case errors.As(err, &profileErr):
		app.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "invalid profile", Issues: profileErr.Issues})
	case errors.Is(err, plan.ErrInvalidProfile), errors.Is(err, fitness.ErrInvalidInput):
		app.writeError(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, plan.ErrNotFound):
		app.notFound(w, r)
	case errors.As(err, &validationErr):
		app.writeError(w, r, http.StatusUnprocessableEntity, errorResponse{
			Error:  validationErr.Part + " plan failed validation",
			Issues: validationErr.Issues,
		})
	case errors.As(err, &failure):
		app.logger.LogAttrs(r.Context(), slog.LevelWarn, "generation failed", slog.Any("failure", failure))
		app.writeError(w, r, http.StatusBadGateway, errorResponse{
			Error:   failure.Message,
			Kind:    string(failure.Kind),
			RawText: failure.RawText,
		})
	default:
		app.serverError(w, r, err)
	}
}

// decodeProfile reads a profile from the request body. It reports whether the body was empty so that callers can
// fall back to a stored profile.
func (app *application) decodeProfile(w http.ResponseWriter, r *http.Request) (_ plan.UserProfile, empty bool, ok bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		app.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "read body: " + err.Error()})
		return plan.UserProfile{}, false, false
	}
	if len(body) == 0 {
		return plan.UserProfile{}, true, true
	}
	var profile plan.UserProfile
	if err = json.Unmarshal(body, &profile); err != nil {
		app.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return plan.UserProfile{}, false, false
	}
	return profile, false, true
}
