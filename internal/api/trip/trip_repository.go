package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ TripRepository = (*PostgresTripRepository)(nil)

type TripRepository interface {
	// SaveTrip writes the trip tree in one transaction and returns it reloaded.
	SaveTrip(ctx context.Context, owner *uuid.UUID, req types.GenerateTripRequest, assembled *types.AssembledTrip) (*types.Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error)
	ListTripsByOwner(ctx context.Context, owner uuid.UUID) ([]types.Trip, error)
	UpdateTrip(ctx context.Context, id uuid.UUID, req types.UpdateTripRequest) (*types.Trip, error)
	DeleteTrip(ctx context.Context, id uuid.UUID) error
}

// queryer is satisfied by both the pool and an open transaction.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresTripRepository struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewPostgresTripRepository(pgpool database.Pool, logger *slog.Logger) *PostgresTripRepository {
	return &PostgresTripRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

const (
	insertTripQuery = `
        INSERT INTO trips (user_id, destination, duration, budget, interests, trip_title, summary)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`

	insertDayPlanQuery = `
        INSERT INTO day_plans (trip_id, day_number, theme)
        VALUES ($1, $2, $3)
        RETURNING id`

	insertActivityQuery = `
        INSERT INTO activities (
            day_plan_id, position, time_of_day, description, location,
            latitude, longitude, booking_url, activity_rating, activity_image_url
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	selectTripQuery = `
        SELECT id, user_id, destination, duration, budget, interests, trip_title, summary, created_at, updated_at
        FROM trips
        WHERE id = $1`

	selectTripsByOwnerQuery = `
        SELECT id, user_id, destination, duration, budget, interests, trip_title, summary, created_at, updated_at
        FROM trips
        WHERE user_id = $1
        ORDER BY created_at DESC`

	selectDayPlansQuery = `
        SELECT id, trip_id, day_number, theme, created_at
        FROM day_plans
        WHERE trip_id = $1
        ORDER BY day_number`

	selectActivitiesQuery = `
        SELECT a.id, a.day_plan_id, a.time_of_day, a.description, a.location, a.latitude, a.longitude,
               a.booking_url, a.activity_price, a.activity_rating, a.activity_image_url, a.created_at
        FROM activities a
        JOIN day_plans d ON d.id = a.day_plan_id
        WHERE d.trip_id = $1
        ORDER BY d.day_number, a.position`
)

func (r *PostgresTripRepository) SaveTrip(ctx context.Context, owner *uuid.UUID, req types.GenerateTripRequest, assembled *types.AssembledTrip) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "SaveTrip", trace.WithAttributes(
		attribute.String("trip.destination", req.Destination),
		attribute.Int("trip.days", len(assembled.Days)),
	))
	defer span.End()

	fail := func(step string, err error) (*types.Trip, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		r.recordDBError(ctx, step)
		r.logger.ErrorContext(ctx, "Trip transaction failed, rolling back", slog.String("step", step), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %s: %w", types.ErrPersistenceFailed, step, err)
	}

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fail("begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.WarnContext(ctx, "Rollback failed", slog.Any("error", err))
		}
	}()

	var tripID uuid.UUID
	if err := tx.QueryRow(ctx, insertTripQuery,
		owner, req.Destination, req.Duration, req.Budget, req.Interests, assembled.Title, assembled.Summary,
	).Scan(&tripID); err != nil {
		return fail("insert trip", err)
	}

	for _, day := range assembled.Days {
		var dayPlanID uuid.UUID
		if err := tx.QueryRow(ctx, insertDayPlanQuery, tripID, day.DayNumber, day.Theme).Scan(&dayPlanID); err != nil {
			return fail(fmt.Sprintf("insert day plan %d", day.DayNumber), err)
		}
		for pos, act := range day.Activities {
			if _, err := tx.Exec(ctx, insertActivityQuery,
				dayPlanID, pos, act.TimeOfDay, act.Description, act.Location,
				act.Latitude, act.Longitude, act.BookingURL, act.Rating, act.ImageURL,
			); err != nil {
				return fail(fmt.Sprintf("insert activity %d of day %d", pos, day.DayNumber), err)
			}
		}
	}

	trip, err := loadTrip(ctx, tx, tripID)
	if err != nil {
		return fail("reload trip", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}

	span.SetAttributes(attribute.String("trip.id", tripID.String()))
	r.logger.InfoContext(ctx, "Trip saved",
		slog.String("trip_id", tripID.String()),
		slog.Int("days", len(trip.DayPlans)))
	return trip, nil
}

func (r *PostgresTripRepository) GetTrip(ctx context.Context, id uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "GetTrip", trace.WithAttributes(
		attribute.String("trip.id", id.String()),
	))
	defer span.End()

	trip, err := loadTrip(ctx, r.pgpool, id)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			span.RecordError(err)
			r.recordDBError(ctx, "get trip")
		}
		return nil, err
	}
	return trip, nil
}

func (r *PostgresTripRepository) ListTripsByOwner(ctx context.Context, owner uuid.UUID) ([]types.Trip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "ListTripsByOwner", trace.WithAttributes(
		attribute.String("user.id", owner.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, selectTripsByOwnerQuery, owner)
	if err != nil {
		r.recordDBError(ctx, "list trips")
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	trips, err := pgx.CollectRows(rows, scanTrip)
	if err != nil {
		r.recordDBError(ctx, "list trips")
		return nil, fmt.Errorf("failed to scan trips: %w", err)
	}

	for i := range trips {
		if err := loadDayPlans(ctx, r.pgpool, &trips[i]); err != nil {
			r.recordDBError(ctx, "list trips")
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("trips.count", len(trips)))
	return trips, nil
}

func (r *PostgresTripRepository) UpdateTrip(ctx context.Context, id uuid.UUID, req types.UpdateTripRequest) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "UpdateTrip", trace.WithAttributes(
		attribute.String("trip.id", id.String()),
	))
	defer span.End()

	query := `
        UPDATE trips
        SET trip_title = COALESCE($2, trip_title),
            summary = COALESCE($3, summary),
            updated_at = NOW()
        WHERE id = $1`
	tag, err := r.pgpool.Exec(ctx, query, id, req.Title, req.Summary)
	if err != nil {
		r.recordDBError(ctx, "update trip")
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, types.ErrNotFound
	}
	return r.GetTrip(ctx, id)
}

// DeleteTrip relies on ON DELETE CASCADE for day plans and activities.
func (r *PostgresTripRepository) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "DeleteTrip", trace.WithAttributes(
		attribute.String("trip.id", id.String()),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		r.recordDBError(ctx, "delete trip")
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresTripRepository) recordDBError(ctx context.Context, op string) {
	metrics.Get().DbQueryErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

func loadTrip(ctx context.Context, q queryer, id uuid.UUID) (*types.Trip, error) {
	rows, err := q.Query(ctx, selectTripQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query trip: %w", err)
	}
	trip, err := pgx.CollectExactlyOneRow(rows, scanTrip)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan trip: %w", err)
	}
	if err := loadDayPlans(ctx, q, &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

func loadDayPlans(ctx context.Context, q queryer, trip *types.Trip) error {
	rows, err := q.Query(ctx, selectDayPlansQuery, trip.ID)
	if err != nil {
		return fmt.Errorf("failed to query day plans: %w", err)
	}
	plans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.DayPlan, error) {
		var d types.DayPlan
		err := row.Scan(&d.ID, &d.TripID, &d.DayNumber, &d.Theme, &d.CreatedAt)
		d.Activities = []types.Activity{}
		return d, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan day plans: %w", err)
	}

	rows, err = q.Query(ctx, selectActivitiesQuery, trip.ID)
	if err != nil {
		return fmt.Errorf("failed to query activities: %w", err)
	}
	activities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Activity, error) {
		var a types.Activity
		err := row.Scan(&a.ID, &a.DayPlanID, &a.TimeOfDay, &a.Description, &a.Location, &a.Latitude, &a.Longitude,
			&a.BookingURL, &a.Price, &a.Rating, &a.ImageURL, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return fmt.Errorf("failed to scan activities: %w", err)
	}

	byPlan := make(map[uuid.UUID]int, len(plans))
	for i := range plans {
		byPlan[plans[i].ID] = i
	}
	for _, a := range activities {
		if i, ok := byPlan[a.DayPlanID]; ok {
			plans[i].Activities = append(plans[i].Activities, a)
		}
	}
	trip.DayPlans = plans
	return nil
}

func scanTrip(row pgx.CollectableRow) (types.Trip, error) {
	var t types.Trip
	err := row.Scan(&t.ID, &t.UserID, &t.Destination, &t.Duration, &t.Budget, &t.Interests,
		&t.Title, &t.Summary, &t.CreatedAt, &t.UpdatedAt)
	t.DayPlans = []types.DayPlan{}
	return t, err
}
