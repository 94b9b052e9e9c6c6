package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	var (
		crossOrigin = app.crossOrigin()
		shared      = func(next http.Handler) http.Handler {
			return app.logAndTraceRequest(app.recoverPanic(secureHeaders(noCache(app.timeout(next)))))
		}
		api = func(next http.HandlerFunc) http.Handler {
			return shared(crossOrigin(next))
		}
	)

	mux.Handle("GET /api/healthy", shared(http.HandlerFunc(app.healthy)))

	mux.Handle("GET /api/plans", api(app.planListGET))
	mux.Handle("POST /api/plans", api(app.planCreatePOST))
	mux.Handle("GET /api/plans/{id}", api(app.planGET))
	mux.Handle("POST /api/plans/{id}/workout", api(app.planRegeneratePOST("workout", app.generator.RegenerateWorkout)))
	mux.Handle("POST /api/plans/{id}/nutrition",
		api(app.planRegeneratePOST("nutrition", app.generator.RegenerateNutrition)))
	mux.Handle("GET /api/plans/{id}/export.md", api(app.planExportMarkdownGET))
	mux.Handle("GET /api/plans/{id}/export.xlsx", api(app.planExportXLSXGET))
	mux.Handle("OPTIONS /api/", api(http.NotFound))

	mux.Handle("GET /plans/{id}", shared(http.HandlerFunc(app.planPageGET)))

	mux.Handle("/", shared(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.writeError(w, r, http.StatusNotFound, errorResponse{Error: http.StatusText(http.StatusNotFound)})
	})))

	return mux
}
