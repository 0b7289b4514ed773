package httpapi

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	// TrustedProxies may set X-Forwarded-For; requests from anywhere else are
	// keyed by their connection address.
	TrustedProxies []netip.Prefix
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// StaticDir is served under /static/ for the filesystem storage driver.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP(opts.TrustedProxies),
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		// Only submissions are rate limited; clients poll reads every few seconds.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, 10*time.Minute))
			r.Post("/v1/images/generate", app.ImagesGenerate)
			r.Post("/v1/images/edit", app.ImagesEdit)
			r.Post("/v1/videos/generate", app.VideosGenerate)
		})

		r.Route("/v1/generations/{id}", func(r chi.Router) {
			r.Get("/", app.GenerationStatus)
			r.Get("/events", app.GenerationEvents)
			r.Get("/archive", app.GenerationArchive)
		})

		r.Get("/v1/gallery", app.Gallery)
	})

	return r
}
