package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zembil-Gift/go-zembil-frontend-sub002/internal/state"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/health"
	"github.com/Zembil-Gift/go-zembil-frontend-sub002/pkg/middleware"
)

// ServiceName labels metrics and traces.
const ServiceName = "storefront"

// RouterConfig collects what NewRouter needs.
type RouterConfig struct {
	Registry       *state.Registry
	Health         *health.Handler
	Logger         *slog.Logger
	TokenValidator middleware.TokenValidator
	// RateLimiter guards mutations; it should be keyed with SessionRateKey.
	RateLimiter *middleware.RateLimiter
	Cookie      CookieConfig
	CORS        middleware.CORSConfig
	PprofCIDRs  []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	h := NewStorefrontHandler(cfg.Registry, cfg.Cookie, cfg.Logger)

	r.Route("/api/v1/storefront", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.OptionalAuth(cfg.TokenValidator))
		r.Use(Session(cfg.Cookie))
		// Rebuild the request logger now that user_id or guest_id is known.
		r.Use(middleware.RequestLogger(cfg.Logger))

		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}

		r.Get("/state", h.GetState)
		r.Post("/session/sign-in", h.SignIn)

		r.Route("/cart", func(r chi.Router) {
			r.Delete("/", h.ClearCart)
			r.Get("/totals", h.GetTotals)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{lineId}", h.UpdateQuantity)
			r.Delete("/items/{lineId}", h.RemoveItem)
			r.Post("/drawer/{action}", h.Drawer)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", h.GetWishlist)
			r.Patch("/entries/{entryId}", h.UpdateWishlistNotes)
			r.Post("/{productId}", h.AddToWishlist)
			r.Delete("/{productId}", h.RemoveFromWishlist)
			r.Post("/{productId}/toggle", h.ToggleWishlist)
		})

		r.Route("/event-wishlist", func(r chi.Router) {
			r.Get("/", h.GetEventWishlist)
			r.Patch("/entries/{entryId}", h.UpdateEventWishlistEntry)
			r.Post("/{eventId}", h.AddEventToWishlist)
			r.Delete("/{eventId}", h.RemoveEventFromWishlist)
			r.Post("/{eventId}/toggle", h.ToggleEventWishlist)
		})
	})

	return r
}
