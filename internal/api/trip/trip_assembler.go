package trip

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// ResolutionPolicy decides what happens to an activity whose place could not be verified.
type ResolutionPolicy string

const (
	// PolicyLenient keeps the activity with the best coordinate available.
	PolicyLenient ResolutionPolicy = "lenient"
	// PolicyStrict drops any activity without a verified listing.
	PolicyStrict ResolutionPolicy = "strict"
)

func PolicyFromStrict(strict bool) ResolutionPolicy {
	if strict {
		return PolicyStrict
	}
	return PolicyLenient
}

const (
	defaultTimeOfDay     = "Anytime"
	defaultTripTitle     = "My Trip"
	defaultJitterDegrees = 0.015

	dropUnverified = "unverified"
	dropDuplicate  = "duplicate"
	dropExtraDay   = "extra_day"
)

// PlaceResolver is the slice of the place resolver the assembler needs.
type PlaceResolver interface {
	Resolve(ctx context.Context, location, destination string) *types.PlaceRecord
}

type AssemblerOptions struct {
	Policy        ResolutionPolicy
	JitterDegrees float64
	// LookupDelay is slept between consecutive place lookups of one trip.
	LookupDelay time.Duration
	// Rand drives the coordinate jitter. Nil uses the global source.
	Rand *rand.Rand
}

// TripContext is the per-request input the assembler needs besides the raw model output.
type TripContext struct {
	Destination   string
	RequestedDays int
	CityCenter    *types.CityCenter
	DefaultImage  string
}

type Assembler struct {
	resolver PlaceResolver
	opts     AssemblerOptions
	randMu   sync.Mutex
	logger   *slog.Logger
}

func NewAssembler(resolver PlaceResolver, opts AssemblerOptions, logger *slog.Logger) *Assembler {
	if opts.Policy == "" {
		opts.Policy = PolicyLenient
	}
	if opts.JitterDegrees <= 0 {
		opts.JitterDegrees = defaultJitterDegrees
	}
	return &Assembler{
		resolver: resolver,
		opts:     opts,
		logger:   logger.With(slog.String("component", "Assembler"), slog.String("policy", string(opts.Policy))),
	}
}

// Assemble verifies, deduplicates and enriches the raw itinerary. Day order and day numbers
// come from the model; days are never fabricated. The only error is context cancellation.
func (a *Assembler) Assemble(ctx context.Context, raw *types.RawTrip, tc TripContext) (*types.AssembledTrip, error) {
	ctx, span := otel.Tracer("Assembler").Start(ctx, "Assemble", trace.WithAttributes(
		attribute.String("trip.destination", tc.Destination),
		attribute.Int("trip.requested_days", tc.RequestedDays),
		attribute.Int("trip.raw_days", len(raw.Days)),
	))
	defer span.End()

	out := &types.AssembledTrip{
		Title:         strings.TrimSpace(raw.Title),
		Summary:       strings.TrimSpace(raw.Summary),
		RequestedDays: tc.RequestedDays,
		Days:          make([]types.AssembledDay, 0, len(raw.Days)),
	}
	if out.Title == "" {
		out.Title = defaultTripTitle
	}

	seenNames := make(map[string]struct{})
	seenDays := make(map[int]struct{})
	lookups := 0

	for _, rawDay := range raw.Days {
		if _, dup := seenDays[rawDay.Day]; dup {
			a.logger.WarnContext(ctx, "Skipping repeated day number", slog.Int("day", rawDay.Day))
			a.dropped(ctx, dropExtraDay, len(rawDay.Activities))
			continue
		}
		if tc.RequestedDays > 0 && len(out.Days) >= tc.RequestedDays {
			a.logger.WarnContext(ctx, "Model returned more days than requested, ignoring the rest",
				slog.Int("requested", tc.RequestedDays), slog.Int("day", rawDay.Day))
			a.dropped(ctx, dropExtraDay, len(rawDay.Activities))
			continue
		}
		seenDays[rawDay.Day] = struct{}{}

		day := types.AssembledDay{DayNumber: rawDay.Day}
		if theme := strings.TrimSpace(rawDay.Theme); theme != "" {
			day.Theme = &theme
		}

		for _, rawAct := range rawDay.Activities {
			location := strings.TrimSpace(rawAct.Location)

			var rec *types.PlaceRecord
			if location != "" {
				if lookups > 0 && a.opts.LookupDelay > 0 {
					if err := sleep(ctx, a.opts.LookupDelay); err != nil {
						return nil, err
					}
				}
				lookups++
				rec = a.resolver.Resolve(ctx, location, tc.Destination)
			}

			// Strict mode only judges activities that name a place.
			if a.opts.Policy == PolicyStrict && location != "" && !rec.Verified() {
				a.logger.DebugContext(ctx, "Dropping unverified activity", slog.String("location", location))
				a.dropped(ctx, dropUnverified, 1)
				continue
			}

			name := location
			if rec.Verified() && strings.TrimSpace(rec.Name) != "" {
				name = strings.TrimSpace(rec.Name)
			}
			if key := normalizeName(name); key != "" {
				if _, dup := seenNames[key]; dup {
					a.logger.DebugContext(ctx, "Dropping duplicate activity", slog.String("location", name))
					a.dropped(ctx, dropDuplicate, 1)
					continue
				}
				seenNames[key] = struct{}{}
			}

			day.Activities = append(day.Activities, a.buildActivity(rawAct, name, rec, tc))
		}
		out.Days = append(out.Days, day)
	}

	span.SetAttributes(
		attribute.Int("trip.days", len(out.Days)),
		attribute.Int("trip.activities", out.ActivityCount()),
	)
	return out, nil
}

func (a *Assembler) buildActivity(raw types.RawActivity, name string, rec *types.PlaceRecord, tc TripContext) types.AssembledActivity {
	act := types.AssembledActivity{
		TimeOfDay:   strings.TrimSpace(raw.Time),
		Description: strings.TrimSpace(raw.Description),
	}
	if act.TimeOfDay == "" {
		act.TimeOfDay = defaultTimeOfDay
	}
	if name != "" {
		act.Location = &name
	}

	switch {
	case rec != nil:
		act.Latitude, act.Longitude = ptr(rec.Latitude), ptr(rec.Longitude)
	case raw.Latitude != nil && raw.Longitude != nil:
		act.Latitude, act.Longitude = ptr(*raw.Latitude), ptr(*raw.Longitude)
	case tc.CityCenter != nil:
		lat, lng := a.jitter(tc.CityCenter.Latitude, tc.CityCenter.Longitude)
		act.Latitude, act.Longitude = &lat, &lng
	}

	if rec.Verified() {
		act.BookingURL = ptr(rec.URL)
		if rec.Rating != nil {
			act.Rating = ptr(clampRating(*rec.Rating))
		}
	}
	switch {
	case rec != nil && rec.ImageURL != "":
		act.ImageURL = ptr(rec.ImageURL)
	case tc.DefaultImage != "":
		act.ImageURL = ptr(tc.DefaultImage)
	}
	return act
}

func (a *Assembler) jitter(lat, lng float64) (float64, float64) {
	j := a.opts.JitterDegrees
	if a.opts.Rand == nil {
		return lat + (rand.Float64()*2-1)*j, lng + (rand.Float64()*2-1)*j
	}
	a.randMu.Lock()
	defer a.randMu.Unlock()
	return lat + (a.opts.Rand.Float64()*2-1)*j, lng + (a.opts.Rand.Float64()*2-1)*j
}

func (a *Assembler) dropped(ctx context.Context, reason string, n int) {
	if n <= 0 {
		return
	}
	metrics.Get().ActivitiesDroppedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// normalizeName folds case and collapses internal whitespace.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func clampRating(v float64) float64 {
	if v < types.MinPlaceRating {
		return types.MinPlaceRating
	}
	if v > types.MaxPlaceRating {
		return types.MaxPlaceRating
	}
	return v
}

func ptr[T any](v T) *T { return &v }

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
