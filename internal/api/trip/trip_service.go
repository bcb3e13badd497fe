package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/auth"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/city"
	generativeAI "github.com/FACorreiaa/go-itinerary-planner/internal/api/generative_ai"
	llmInteraction "github.com/FACorreiaa/go-itinerary-planner/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ TripService = (*TripServiceImpl)(nil)

type TripService interface {
	GeneratePlan(ctx context.Context, owner *uuid.UUID, req types.GenerateTripRequest) (*types.Trip, error)
	ListTrips(ctx context.Context, p types.Principal) ([]types.Trip, error)
	GetTrip(ctx context.Context, p types.Principal, id uuid.UUID) (*types.Trip, error)
	UpdateTrip(ctx context.Context, p types.Principal, id uuid.UUID, req types.UpdateTripRequest) (*types.Trip, error)
	DeleteTrip(ctx context.Context, p types.Principal, id uuid.UUID) error
}

// CredentialSource hands out the model/key pair for the next attempt.
type CredentialSource interface {
	Next(ctx context.Context) (generativeAI.Credential, error)
}

// ItineraryModel runs one model attempt.
type ItineraryModel interface {
	GenerateItinerary(ctx context.Context, prompt string, cred generativeAI.Credential) (*generativeAI.Generation, error)
}

// DestinationImager returns a representative destination image, "" if none.
type DestinationImager interface {
	DestinationImage(ctx context.Context, destination string) string
}

type ServiceOptions struct {
	MaxAttempts        int
	RetryDelay         time.Duration
	DefaultInterests   string
	MaxDuration        int
	RecordInteractions bool
	// InteractionTimeout bounds each audit write so a slow audit store cannot hold the request.
	InteractionTimeout time.Duration
}

const defaultInteractionTimeout = 5 * time.Second

type state string

const (
	stateGenerating state = "GENERATING"
	stateAssembling state = "ASSEMBLING"
	statePersisting state = "PERSISTING"
	stateDone       state = "DONE"
	stateRolledBack state = "ROLLED_BACK"
	stateFailed     state = "FAILED"
)

type TripServiceImpl struct {
	logger       *slog.Logger
	credentials  CredentialSource
	model        ItineraryModel
	assembler    *Assembler
	images       DestinationImager
	cities       city.CityRepository
	repo         TripRepository
	interactions llmInteraction.LLmInteractionRepository
	policy       auth.TripPolicy
	opts         ServiceOptions
}

// NewTripService wires the generation pipeline. credentials may be nil when no models or
// keys are configured; generation then fails with ErrMissingCredentials. interactions may be nil.
func NewTripService(
	credentials CredentialSource,
	model ItineraryModel,
	assembler *Assembler,
	images DestinationImager,
	cities city.CityRepository,
	repo TripRepository,
	interactions llmInteraction.LLmInteractionRepository,
	opts ServiceOptions,
	logger *slog.Logger,
) *TripServiceImpl {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 14
	}
	if opts.DefaultInterests == "" {
		opts.DefaultInterests = "General sightseeing"
	}
	if opts.InteractionTimeout <= 0 {
		opts.InteractionTimeout = defaultInteractionTimeout
	}
	return &TripServiceImpl{
		logger:       logger,
		credentials:  credentials,
		model:        model,
		assembler:    assembler,
		images:       images,
		cities:       cities,
		repo:         repo,
		interactions: interactions,
		opts:         opts,
	}
}

func (s *TripServiceImpl) GeneratePlan(ctx context.Context, owner *uuid.UUID, req types.GenerateTripRequest) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GeneratePlan", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.Int("trip.duration", req.Duration),
		attribute.Bool("trip.anonymous", owner == nil),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GeneratePlan"), slog.String("destination", req.Destination))
	start := time.Now()
	outcome := "failed"
	defer func() {
		m := metrics.Get()
		attrs := metric.WithAttributes(attribute.String("outcome", outcome))
		m.GenerationRequestsTotal.Add(ctx, 1, attrs)
		m.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	req.Normalize(s.opts.DefaultInterests)
	if err := req.Validate(s.opts.MaxDuration); err != nil {
		outcome = "invalid"
		return nil, err
	}
	if s.credentials == nil {
		outcome = "misconfigured"
		l.ErrorContext(ctx, "No model credentials configured")
		span.SetStatus(codes.Error, "missing credentials")
		return nil, types.ErrMissingCredentials
	}

	prompt, err := BuildPlanPrompt(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.transition(ctx, l, stateGenerating)
	raw, err := s.generate(ctx, l, owner, req.Destination, prompt)
	if err != nil {
		s.transition(ctx, l, stateFailed)
		outcome = "generation_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, types.ErrGenerationFailed
	}

	s.transition(ctx, l, stateAssembling)
	tc := s.prefetch(ctx, l, req)
	assembled, err := s.assembler.Assemble(ctx, raw, tc)
	if err != nil {
		s.transition(ctx, l, stateFailed)
		outcome = "generation_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, "assembly interrupted")
		return nil, fmt.Errorf("%w: %w", types.ErrGenerationFailed, err)
	}
	if short := assembled.ShortBy(); short > 0 {
		l.WarnContext(ctx, "Model returned fewer days than requested",
			slog.Int("requested", req.Duration),
			slog.Int("produced", len(assembled.Days)),
			slog.Int("missing", short))
		span.SetAttributes(attribute.Int("trip.short_by", short))
	}

	s.transition(ctx, l, statePersisting)
	trip, err := s.repo.SaveTrip(ctx, owner, req, assembled)
	if err != nil {
		s.transition(ctx, l, stateRolledBack)
		s.transition(ctx, l, stateFailed)
		outcome = "persistence_failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		if !errors.Is(err, types.ErrPersistenceFailed) {
			err = fmt.Errorf("%w: %w", types.ErrPersistenceFailed, err)
		}
		return nil, err
	}

	s.transition(ctx, l, stateDone)
	outcome = "succeeded"
	span.SetAttributes(attribute.String("trip.id", trip.ID.String()))
	span.SetStatus(codes.Ok, "Trip generated")
	l.InfoContext(ctx, "Trip generated",
		slog.String("trip_id", trip.ID.String()),
		slog.Int("days", len(trip.DayPlans)),
		slog.Int("activities", assembled.ActivityCount()),
		slog.Duration("elapsed", time.Since(start)))
	return trip, nil
}

// generate runs the retry envelope around credential selection and the model call.
func (s *TripServiceImpl) generate(ctx context.Context, l *slog.Logger, owner *uuid.UUID, destination, prompt string) (*types.RawTrip, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.opts.RetryDelay); err != nil {
				return nil, err
			}
		}

		cred, err := s.credentials.Next(ctx)
		if err != nil {
			lastErr = err
			l.WarnContext(ctx, "Could not select model credentials", slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}

		callStart := time.Now()
		gen, err := s.model.GenerateItinerary(ctx, prompt, cred)
		s.recordAttempt(ctx, owner, destination, prompt, attempt, cred, gen, err, time.Since(callStart))
		if err == nil && gen != nil && gen.Trip != nil {
			l.InfoContext(ctx, "Model attempt succeeded", slog.Int("attempt", attempt), slog.String("model", cred.Model))
			return gen.Trip, nil
		}
		if err == nil {
			err = types.ErrMalformedModelOutput
		}
		lastErr = err
		l.WarnContext(ctx, "Model attempt failed",
			slog.Int("attempt", attempt),
			slog.String("model", cred.Model),
			slog.Int("key_index", cred.KeyIndex),
			slog.Any("error", err))
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", s.opts.MaxAttempts, lastErr)
}

// prefetch looks up the city centre and the destination image concurrently. Both are
// best effort and never fail the request.
func (s *TripServiceImpl) prefetch(ctx context.Context, l *slog.Logger, req types.GenerateTripRequest) TripContext {
	tc := TripContext{Destination: req.Destination, RequestedDays: req.Duration}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.cities == nil {
			return nil
		}
		center, err := s.cities.FindCityCenter(gctx, req.Destination)
		if err != nil {
			l.WarnContext(gctx, "City centre lookup failed", slog.Any("error", err))
			return nil
		}
		if center == nil {
			l.InfoContext(gctx, "No city centre known for destination")
		}
		tc.CityCenter = center
		return nil
	})
	g.Go(func() error {
		if s.images == nil {
			return nil
		}
		tc.DefaultImage = s.images.DestinationImage(gctx, req.Destination)
		return nil
	})
	_ = g.Wait()
	return tc
}

func (s *TripServiceImpl) recordAttempt(ctx context.Context, owner *uuid.UUID, destination, prompt string, attempt int, cred generativeAI.Credential, gen *generativeAI.Generation, err error, latency time.Duration) {
	status := attemptStatus(gen, err)
	metrics.Get().ModelAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", cred.Model),
		attribute.String("result", string(status)),
	))

	if !s.opts.RecordInteractions || s.interactions == nil {
		return
	}
	interaction := types.LlmInteraction{
		UserID:      owner,
		Destination: destination,
		Prompt:      prompt,
		ModelUsed:   cred.Model,
		KeyIndex:    cred.KeyIndex,
		Attempt:     attempt,
		Status:      status,
		LatencyMs:   int(latency.Milliseconds()),
	}
	if gen != nil {
		interaction.ResponseText = gen.Text
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.InteractionTimeout)
	defer cancel()
	if err := s.interactions.SaveInteraction(auditCtx, interaction); err != nil {
		s.logger.WarnContext(ctx, "Failed to record llm interaction", slog.Any("error", err))
	}
}

func attemptStatus(gen *generativeAI.Generation, err error) types.InteractionStatus {
	switch {
	case err == nil && gen != nil && gen.Trip != nil:
		return types.InteractionSucceeded
	case errors.Is(err, types.ErrRateLimited):
		return types.InteractionRateLimited
	case err == nil, errors.Is(err, types.ErrMalformedModelOutput):
		return types.InteractionMalformed
	}
	return types.InteractionFailed
}

func (s *TripServiceImpl) transition(ctx context.Context, l *slog.Logger, to state) {
	trace.SpanFromContext(ctx).AddEvent(string(to))
	l.DebugContext(ctx, "Generation state", slog.String("state", string(to)))
}

func (s *TripServiceImpl) ListTrips(ctx context.Context, p types.Principal) ([]types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ListTrips")
	defer span.End()
	return s.repo.ListTripsByOwner(ctx, p.UserID)
}

func (s *TripServiceImpl) GetTrip(ctx context.Context, p types.Principal, id uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GetTrip", trace.WithAttributes(attribute.String("trip.id", id.String())))
	defer span.End()

	trip, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanView(p, trip) {
		return nil, types.ErrForbidden
	}
	return trip, nil
}

func (s *TripServiceImpl) UpdateTrip(ctx context.Context, p types.Principal, id uuid.UUID, req types.UpdateTripRequest) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "UpdateTrip", trace.WithAttributes(attribute.String("trip.id", id.String())))
	defer span.End()

	if req.IsEmpty() {
		return nil, types.NewValidationError("nothing to update: provide trip_title and/or summary")
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, types.NewValidationError("trip_title must not be empty")
		}
		req.Title = &title
	}
	if req.Summary != nil {
		summary := strings.TrimSpace(*req.Summary)
		req.Summary = &summary
	}

	trip, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.CanUpdate(p, trip) {
		return nil, types.ErrForbidden
	}
	return s.repo.UpdateTrip(ctx, id, req)
}

func (s *TripServiceImpl) DeleteTrip(ctx context.Context, p types.Principal, id uuid.UUID) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "DeleteTrip", trace.WithAttributes(attribute.String("trip.id", id.String())))
	defer span.End()

	trip, err := s.repo.GetTrip(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.CanDelete(p, trip) {
		return types.ErrForbidden
	}
	return s.repo.DeleteTrip(ctx, id)
}
