package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"adstudio/internal/http/handlers"
	"adstudio/internal/infra"
	appmw "adstudio/internal/middleware"
)

// NewRouter builds the full API surface. The country lookup is optional and
// only feeds locale detection.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger, lookup appmw.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		appmw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		appmw.Logger(logger),
		appmw.CORS(cfg.AllowedOrigins),
		appmw.I18N("pt", lookup),
	)

	r.Get("/v1/healthz", app.Healthz)
	r.Get("/v1/stats/summary", app.StatsSummary)

	r.Group(func(r chi.Router) {
		r.Use(appmw.AuthJWT(cfg.JWTSecret))
		r.Use(appmw.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Post("/v1/generations", app.GenerationsSubmit)
		r.Get("/v1/jobs/{job_id}", app.JobStatus)
		r.Post("/v1/jobs/{job_id}/retry", app.JobRetry)
		r.Get("/v1/artifacts/{artifact_id}/download", app.ArtifactDownload)
		r.Get("/v1/artifacts/{artifact_id}/bundle", app.ArtifactBundle)
		r.Get("/v1/history", app.History)
		r.Get("/v1/account/balance", app.AccountBalance)
	})

	return r
}
