package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/fitplan/internal/errors"
)

const timeoutBody = `{"error":"timed out"}`

// timeout responds with 503 Service Unavailable when the handler does not finish in time. The request context is
// cancelled, which stops any generation in flight. With a flight recorder configured, the trace leading up to the
// timeout is written to disk.
func (app *application) timeout(h http.Handler) http.Handler {
	d := app.handlerTimeout
	if d <= 0 {
		d = time.Minute
	}
	th := http.TimeoutHandler(h, d, timeoutBody)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// TimeoutHandler writes its body without a content type of its own.
		w.Header().Set("Content-Type", "application/json")
		sw := newStatusResponseWriter(w)
		th.ServeHTTP(sw, r)
		if sw.statusCode != http.StatusServiceUnavailable || app.traces == nil {
			return
		}
		if _, err := app.traces.Capture(r.Context(), "timeout"); err != nil {
			app.logger.LogAttrs(r.Context(), slog.LevelError, "capture timeout trace", errors.SlogError(err))
		}
	})
}
