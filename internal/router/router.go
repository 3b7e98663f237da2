package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/config"
	"github.com/danielandresolateseguel/server1/internal/handler"
	mw "github.com/danielandresolateseguel/server1/internal/middleware"
	"github.com/danielandresolateseguel/server1/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Every storefront-scoped route requires that storefront's session token.
func New(cfg *config.Config, fronts handler.Storefronts, catalog handler.ProductLister, hub *ws.Hub, log *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/storefronts/{sid}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	sfHandler := handler.NewStorefrontHandler(fronts, cfg.JWTSecret, cfg.TokenTTL)
	r.Route("/storefronts", func(r chi.Router) {
		// Opening a storefront issues its token
		sfHandler.RegisterRoutes(r)

		r.Route("/{sid}", func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireStorefront)

			sfHandler.RegisterSessionRoutes(r)

			cartHandler := handler.NewCartHandler(fronts)
			r.Route("/cart", cartHandler.RegisterRoutes)

			checkoutHandler := handler.NewCheckoutHandler(fronts)
			r.Route("/checkout", checkoutHandler.RegisterRoutes)

			statusHandler := handler.NewStatusHandler(fronts)
			r.Route("/status", statusHandler.RegisterRoutes)

			catalogHandler := handler.NewCatalogHandler(fronts, catalog)
			r.Route("/products", catalogHandler.RegisterRoutes)
		})
	})

	log.Info("router initialized", zap.Strings("allowed_origins", cfg.AllowedOrigins))
	return r
}
