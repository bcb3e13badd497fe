package places

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var parenthetical = regexp.MustCompile(`\s*\(.*?\)\s*`)

// CleanLocationName drops parenthetical asides and surrounding whitespace.
func CleanLocationName(location string) string {
	return strings.TrimSpace(parenthetical.ReplaceAllString(location, " "))
}

// Resolver turns a location name inside a destination into a PlaceRecord.
type Resolver interface {
	Resolve(ctx context.Context, location, destination string) *types.PlaceRecord
	DestinationImage(ctx context.Context, destination string) string
}

type ResolverOptions struct {
	// EnrichmentEnabled turns the POI provider on; when false only the geocoder runs.
	EnrichmentEnabled bool
	CacheTTL          time.Duration
}

var _ Resolver = (*PlaceResolver)(nil)

// PlaceResolver queries the POI provider first and the geocoder second.
// Provider faults are logged and degrade to "no result".
type PlaceResolver struct {
	poi      POIProvider
	geocoder Geocoder
	opts     ResolverOptions
	cache    *cache.Cache
	logger   *slog.Logger
}

// cacheMiss marks a lookup that resolved to nothing so it is not repeated.
type cacheMiss struct{}

func NewPlaceResolver(poi POIProvider, geocoder Geocoder, opts ResolverOptions, logger *slog.Logger) *PlaceResolver {
	var c *cache.Cache
	if opts.CacheTTL > 0 {
		c = cache.New(opts.CacheTTL, opts.CacheTTL/2)
	}
	return &PlaceResolver{
		poi:      poi,
		geocoder: geocoder,
		opts:     opts,
		cache:    c,
		logger:   logger.With(slog.String("component", "PlaceResolver")),
	}
}

func (r *PlaceResolver) Resolve(ctx context.Context, location, destination string) *types.PlaceRecord {
	ctx, span := otel.Tracer("PlaceResolver").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("place.location", location),
		attribute.String("place.destination", destination),
	))
	defer span.End()

	clean := CleanLocationName(location)
	if clean == "" {
		return nil
	}

	key := "place:" + strings.ToLower(clean) + "|" + strings.ToLower(strings.TrimSpace(destination))
	if rec, ok := r.cached(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return rec
	}

	var rec *types.PlaceRecord
	if r.opts.EnrichmentEnabled && r.poi != nil {
		rec = r.lookupPOI(ctx, clean+" in "+destination)
		if rec != nil && (!rec.Verified()) {
			rec = nil
		}
	}
	if rec == nil {
		rec = r.geocode(ctx, clean+", "+destination)
	}

	r.store(key, rec)
	if rec != nil {
		span.SetAttributes(attribute.String("place.source", string(rec.Source)))
	}
	return rec
}

// DestinationImage returns a representative image for the destination itself, "" if none.
func (r *PlaceResolver) DestinationImage(ctx context.Context, destination string) string {
	if !r.opts.EnrichmentEnabled || r.poi == nil {
		return ""
	}
	key := "image:" + strings.ToLower(strings.TrimSpace(destination))
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.(string)
		}
	}
	image := ""
	if rec := r.lookupPOI(ctx, destination); rec != nil {
		image = rec.ImageURL
	}
	if r.cache != nil {
		r.cache.Set(key, image, cache.DefaultExpiration)
	}
	return image
}

// lookupPOI returns the first search hit with details, or nil. The record may lack a URL.
func (r *PlaceResolver) lookupPOI(ctx context.Context, query string) *types.PlaceRecord {
	l := r.logger.With(slog.String("query", query))

	candidates, err := r.poi.Search(ctx, query)
	if err != nil {
		l.WarnContext(ctx, "POI search failed", slog.Any("error", err))
		recordLookup(ctx, providerTripAdvisor, "error")
		return nil
	}
	if len(candidates) == 0 {
		recordLookup(ctx, providerTripAdvisor, "miss")
		return nil
	}
	top := candidates[0]

	details, err := r.poi.Details(ctx, top.ID)
	if err != nil {
		l.WarnContext(ctx, "POI details failed", slog.String("location_id", top.ID), slog.Any("error", err))
		recordLookup(ctx, providerTripAdvisor, "error")
		return nil
	}
	if details.Latitude == nil || details.Longitude == nil {
		recordLookup(ctx, providerTripAdvisor, "miss")
		return nil
	}

	image, err := r.poi.Photo(ctx, top.ID)
	if err != nil {
		l.DebugContext(ctx, "POI photo lookup failed", slog.String("location_id", top.ID), slog.Any("error", err))
		image = ""
	}

	name := details.Name
	if name == "" {
		name = top.Name
	}
	recordLookup(ctx, providerTripAdvisor, "hit")
	return &types.PlaceRecord{
		Name:      name,
		Latitude:  *details.Latitude,
		Longitude: *details.Longitude,
		Rating:    clampRating(details.Rating),
		URL:       details.URL,
		ImageURL:  image,
		Source:    types.PlaceSourcePOI,
	}
}

func (r *PlaceResolver) geocode(ctx context.Context, query string) *types.PlaceRecord {
	if r.geocoder == nil {
		return nil
	}
	coords, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		r.logger.WarnContext(ctx, "Geocoding failed", slog.String("query", query), slog.Any("error", err))
		recordLookup(ctx, providerNominatim, "error")
		return nil
	}
	if coords == nil {
		recordLookup(ctx, providerNominatim, "miss")
		return nil
	}
	recordLookup(ctx, providerNominatim, "hit")
	return &types.PlaceRecord{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Source:    types.PlaceSourceGeocoder,
	}
}

func (r *PlaceResolver) cached(key string) (*types.PlaceRecord, bool) {
	if r.cache == nil {
		return nil, false
	}
	v, ok := r.cache.Get(key)
	if !ok {
		return nil, false
	}
	if rec, ok := v.(*types.PlaceRecord); ok {
		cp := *rec
		return &cp, true
	}
	return nil, true
}

func (r *PlaceResolver) store(key string, rec *types.PlaceRecord) {
	if r.cache == nil {
		return
	}
	if rec == nil {
		r.cache.Set(key, cacheMiss{}, cache.DefaultExpiration)
		return
	}
	cp := *rec
	r.cache.Set(key, &cp, cache.DefaultExpiration)
}

func clampRating(rating *float64) *float64 {
	if rating == nil {
		return nil
	}
	v := *rating
	if v < types.MinPlaceRating {
		v = types.MinPlaceRating
	}
	if v > types.MaxPlaceRating {
		v = types.MaxPlaceRating
	}
	return &v
}

func recordLookup(ctx context.Context, provider, outcome string) {
	metrics.Get().PlaceLookupsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}
