package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrow/internal/http/handlers"
	"escrow/internal/middleware"
)

// Options configures the HTTP surface.
type Options struct {
	JWTSecret       string
	JWTIssuer       string
	RateLimitPerMin int
	CORSOrigins     []string
	// CountryLookup tags audit metadata with the client country. Optional.
	CountryLookup middleware.CountryLookup
	// Gatherer backs /metrics. Optional.
	Gatherer prometheus.Gatherer
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.Audit(opts.CountryLookup),
	)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)

		r.Get("/campaigns", app.CampaignsList)
		r.Get("/campaigns/{id}", app.CampaignsGet)
		r.Get("/campaigns/{id}/donors", app.CampaignsDonors)
		r.Get("/campaigns/{id}/donations/{donor}", app.CampaignsDonation)
		r.Get("/campaigns/{id}/events", app.CampaignsEvents)
		r.Get("/fees", app.FeesGet)
		r.Get("/token/balances/{account}", app.TokenBalance)

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.AuthJWT(opts.JWTSecret, opts.JWTIssuer),
				middleware.RateLimit(opts.RateLimitPerMin, time.Minute),
			)
			r.Post("/campaigns", app.CampaignsCreate)
			r.Post("/campaigns/{id}/donations", app.CampaignsDonate)
			r.Post("/campaigns/{id}/finalize", app.CampaignsFinalize)
			r.Post("/campaigns/{id}/cancel", app.CampaignsCancel)
			r.Put("/fees/bps", app.FeesSetBps)
			r.Put("/fees/recipient", app.FeesSetRecipient)
			r.Post("/token/approve", app.TokenApprove)
			r.Post("/token/mint", app.TokenMint)
		})
	})

	return r
}
