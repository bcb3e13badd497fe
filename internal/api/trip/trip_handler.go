package trip

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/auth"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

const (
	msgGenerationFailed  = "Failed to generate a valid itinerary after multiple attempts. Please try again."
	msgPersistenceFailed = "Could not save the generated trip."
	msgNotConfigured     = "service is not configured"
)

type TripHandler struct {
	tripService TripService
	logger      *slog.Logger
}

func NewTripHandler(tripService TripService, logger *slog.Logger) *TripHandler {
	return &TripHandler{
		tripService: tripService,
		logger:      logger,
	}
}

// PlanTrip generates and stores an itinerary. Authentication is optional; a caller
// with a token owns the resulting trip.
func (h *TripHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "PlanTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/plan"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "PlanTrip"))

	var owner *uuid.UUID
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		uid := p.UserID
		owner = &uid
		span.SetAttributes(semconv.EnduserIDKey.String(uid.String()))
		l = l.With(slog.String("userID", uid.String()))
	}

	var req types.GenerateTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.tripService.GeneratePlan(ctx, owner, req)
	if err != nil {
		l.ErrorContext(ctx, "Trip generation failed", slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}

	l.InfoContext(ctx, "Trip generated", slog.String("trip_id", trip.ID.String()))
	api.WriteJSONResponse(w, r, http.StatusCreated, trip)
}

func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ListTrips", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/trips"),
	))
	defer span.End()

	p, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	trips, err := h.tripService.ListTrips(ctx, p)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list trips", slog.String("userID", p.UserID.String()), slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, trips)
}

func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "GetTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/trips/{tripID}"),
	))
	defer span.End()

	p, id, ok := h.principalAndTripID(w, r)
	if !ok {
		return
	}
	trip, err := h.tripService.GetTrip(ctx, p, id)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to get trip", slog.String("tripID", id.String()), slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, trip)
}

func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UpdateTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/trips/{tripID}"),
	))
	defer span.End()

	p, id, ok := h.principalAndTripID(w, r)
	if !ok {
		return
	}
	var req types.UpdateTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	trip, err := h.tripService.UpdateTrip(ctx, p, id, req)
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to update trip", slog.String("tripID", id.String()), slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, trip)
}

func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "DeleteTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/trips/{tripID}"),
	))
	defer span.End()

	p, id, ok := h.principalAndTripID(w, r)
	if !ok {
		return
	}
	if err := h.tripService.DeleteTrip(ctx, p, id); err != nil {
		h.logger.WarnContext(ctx, "Failed to delete trip", slog.String("tripID", id.String()), slog.Any("error", err))
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *TripHandler) principalAndTripID(w http.ResponseWriter, r *http.Request) (types.Principal, uuid.UUID, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return types.Principal{}, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid trip ID format")
		return types.Principal{}, uuid.Nil, false
	}
	return p, id, true
}

// writeError maps service errors to a status and a client-safe message.
func (h *TripHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, verr.Message)
	case errors.Is(err, types.ErrInvalidRequest):
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
	case errors.Is(err, types.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "You are not allowed to access this trip")
	case errors.Is(err, types.ErrMissingCredentials):
		api.ErrorResponse(w, r, http.StatusInternalServerError, msgNotConfigured)
	case errors.Is(err, types.ErrGenerationFailed):
		api.ErrorResponse(w, r, http.StatusBadGateway, msgGenerationFailed)
	case errors.Is(err, types.ErrPersistenceFailed):
		api.ErrorResponse(w, r, http.StatusInternalServerError, msgPersistenceFailed)
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
