package container

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	appRedis "github.com/FACorreiaa/go-itinerary-planner/app/redis"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/auth"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/city"
	generativeAI "github.com/FACorreiaa/go-itinerary-planner/internal/api/generative_ai"
	llmInteraction "github.com/FACorreiaa/go-itinerary-planner/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/places"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/trip"
	"github.com/FACorreiaa/go-itinerary-planner/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        database.Pool
	Redis       *redis.Client
	TripHandler *trip.TripHandler
	TripService trip.TripService
}

// NewContainer wires repositories, providers, the generation pipeline and handlers.
// redisClient may be nil, in which case the rotation counter is process-local.
func NewContainer(ctx context.Context, cfg *config.Config, pool database.Pool, redisClient *redis.Client, logger *slog.Logger) *Container {
	// repositories
	cityRepo := city.NewCityRepository(pool, logger)
	tripRepo := trip.NewPostgresTripRepository(pool, logger)
	llmInteractionRepo := llmInteraction.NewPostgresLlmInteractionRepo(pool, logger)

	// place resolution
	placesHTTP := places.NewHTTPClient(cfg.Places.HTTPTimeout)
	var poiProvider places.POIProvider
	if cfg.Places.EnrichmentEnabled && cfg.Places.TripAdvisor.APIKey != "" {
		ta := cfg.Places.TripAdvisor
		poiProvider = places.NewTripAdvisorClient(ta.BaseURL, ta.APIKey, ta.Language, ta.Currency, placesHTTP)
	} else if cfg.Places.EnrichmentEnabled {
		logger.WarnContext(ctx, "TripAdvisor API key missing, place enrichment limited to geocoding")
	}
	geocoder := places.NewNominatimClient(cfg.Places.Nominatim.BaseURL, cfg.Places.Nominatim.UserAgent, placesHTTP)
	resolver := places.NewPlaceResolver(poiProvider, geocoder, places.ResolverOptions{
		EnrichmentEnabled: cfg.Places.EnrichmentEnabled && poiProvider != nil,
		CacheTTL:          cfg.Places.CacheTTL,
	}, logger)

	// model client
	var sequence generativeAI.SequenceCounter = &generativeAI.LocalSequence{}
	if redisClient != nil {
		key := appRedis.Key(cfg.Repositories.Redis.Prefix, cfg.Generation.SequenceKey)
		sequence = generativeAI.WithFallback(generativeAI.NewRedisSequence(redisClient, key), sequence, logger)
	}
	var credentials trip.CredentialSource
	rotator, err := generativeAI.NewRotator(cfg.Generation.Models, cfg.Generation.APIKeys, sequence)
	if err != nil {
		logger.WarnContext(ctx, "Model credentials not configured, generation requests will fail", slog.Any("error", err))
	} else {
		credentials = rotator
	}
	generator := generativeAI.NewGenAIGenerator(cfg.Generation.Temperature, places.NewHTTPClient(cfg.Generation.ModelTimeout))
	modelClient := generativeAI.NewModelClient(generator, generativeAI.ClientOptions{
		RateLimitBackoff:  cfg.Generation.RateLimitBackoff,
		MaxRateLimitWaits: cfg.Generation.MaxRateLimitWaits,
		Timeout:           cfg.Generation.ModelTimeout,
	}, logger)

	// pipeline
	assembler := trip.NewAssembler(resolver, trip.AssemblerOptions{
		Policy:        trip.PolicyFromStrict(cfg.Generation.Strict),
		JitterDegrees: cfg.Generation.JitterDegrees,
		LookupDelay:   cfg.Generation.PlaceLookupDelay,
	}, logger)
	tripService := trip.NewTripService(credentials, modelClient, assembler, resolver, cityRepo, tripRepo, llmInteractionRepo,
		trip.ServiceOptions{
			MaxAttempts:        cfg.Generation.MaxAttempts,
			RetryDelay:         cfg.Generation.RetryDelay,
			DefaultInterests:   cfg.Generation.DefaultInterests,
			MaxDuration:        cfg.Generation.MaxDuration,
			RecordInteractions: cfg.Generation.RecordInteractions,
			InteractionTimeout: cfg.Generation.InteractionTimeout,
		}, logger)
	tripHandler := trip.NewTripHandler(tripService, logger)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Redis:       redisClient,
		TripHandler: tripHandler,
		TripService: tripService,
	}
}

// Router builds the API router with the JWT middlewares from config.
func (c *Container) Router() http.Handler {
	return router.SetupRouter(&router.Config{
		TripHandler:                    c.TripHandler,
		AuthenticateMiddleware:         auth.Authenticate(c.Logger, c.Config.JWT),
		OptionalAuthenticateMiddleware: auth.OptionalAuthenticate(c.Logger, c.Config.JWT),
		AllowedOrigins:                 c.Config.Server.AllowedOrigins,
	})
}

// Close releases the redis client. The pool is owned by main.
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
}
