package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
)

// Config contains dependencies needed for the router setup
type Config struct {
	TripHandler                    *trip.TripHandler
	AuthenticateMiddleware         func(http.Handler) http.Handler
	OptionalAuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins                 []string
}

// SetupRouter initializes and configures the API router.
// Server-wide middleware (logger, requestID, recoverer) are applied in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Generation is public; a bearer token makes the caller the owner.
		r.Group(func(r chi.Router) {
			r.Use(cfg.OptionalAuthenticateMiddleware)
			r.Post("/plan", cfg.TripHandler.PlanTrip)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Get("/trips", cfg.TripHandler.ListTrips)
			r.Get("/trips/{tripID}", cfg.TripHandler.GetTrip)
			r.Put("/trips/{tripID}", cfg.TripHandler.UpdateTrip)
			r.Delete("/trips/{tripID}", cfg.TripHandler.DeleteTrip)
		})
	})

	return r
}
