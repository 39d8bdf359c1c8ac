package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"consignment-api/internal/auth"
	"consignment-api/internal/metrics"
)

func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	// Public
	r.Get("/health", a.Health)
	r.Get("/api/status", a.GetStatus)
	r.Get("/api/jobs/last", a.GetLastRun)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Secured when a JWT secret is configured
	r.Group(func(r chi.Router) {
		if auth.Enabled() {
			r.Use(auth.JWTAuthMiddleware)
		}
		r.Post("/api/jobs/run", a.RunJob)
	})

	return r
}

// @Summary Service health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"service": "v8-consignment-api",
	})
}

// @Summary Trigger a job cycle
// @Description Runs one full consignment cycle. Returns 409 when a cycle is already in flight.
// @Tags Jobs
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} job.CycleSummary
// @Failure 409 {object} job.CycleSummary
// @Failure 500 {object} job.CycleSummary
// @Router /api/jobs/run [post]
func (a *API) RunJob(w http.ResponseWriter, r *http.Request) {
	a.Log.Info("manual cycle triggered", zap.String("remote", r.RemoteAddr))

	// Deliberately not the request context: a cycle outlives the caller
	// and must not die with a disconnect.
	result := a.Job.Run(context.Background(), "manual")

	switch {
	case result.AlreadyRunning():
		writeJSON(w, http.StatusConflict, result)
	case !result.OK:
		writeJSON(w, http.StatusInternalServerError, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// @Summary Last completed run
// @Tags Jobs
// @Produce json
// @Success 200 {object} job.Snapshot
// @Router /api/jobs/last [get]
func (a *API) GetLastRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Job.StatusSnapshot())
}

// @Summary Live status and rolling error counters
// @Tags Status
// @Produce json
// @Success 200 {object} status.View
// @Router /api/status [get]
func (a *API) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Tracker.Status())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
