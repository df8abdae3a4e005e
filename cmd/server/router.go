package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/parcelflow/parcelflow-api/internal/api"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	taskHandler := api.NewTaskHandler(app.orchestrator, app.registry, app.logger)
	packageHandler := api.NewPackageHandler(app.manager, app.logger)
	reviewHandler := api.NewReviewHandler(app.reviews, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Task endpoints
		r.Post("/tasks", taskHandler.SubmitTask)
		r.Get("/tasks/types", taskHandler.ListTaskTypes)
		r.Get("/tasks/{id}", taskHandler.GetTaskStatus)
		r.Post("/tasks/{id}/cancel", taskHandler.CancelTask)

		// Workflow package endpoints
		r.Get("/packages", packageHandler.ListPackages)
		r.Get("/packages/predefined", packageHandler.GetPredefinedPackages)
		r.Post("/packages", packageHandler.CreatePackage)
		r.Get("/packages/{id}", packageHandler.GetPackage)
		r.Post("/packages/{id}/execute", packageHandler.ExecutePackage)
		r.Get("/executions/{id}", packageHandler.GetExecutionStatus)
		r.Post("/executions/{id}/steps/{step_id}/review", reviewHandler.ResolveReview)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
