package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-itinerary-planner/app/db"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ CityRepository = (*PostgresCityRepository)(nil)

type CityRepository interface {
	// FindCityCenter returns the most populous city whose name matches, or nil.
	FindCityCenter(ctx context.Context, name string) (*types.CityCenter, error)
}

type PostgresCityRepository struct {
	logger *slog.Logger
	pgpool database.Pool
}

func NewCityRepository(pgpool database.Pool, logger *slog.Logger) *PostgresCityRepository {
	return &PostgresCityRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresCityRepository) FindCityCenter(ctx context.Context, name string) (*types.CityCenter, error) {
	ctx, span := otel.Tracer("CityRepository").Start(ctx, "FindCityCenter", trace.WithAttributes(
		attribute.String("city.name", name),
	))
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	query := `
        SELECT id, city, city_ascii, country, iso2, lat, lng, population
        FROM cities
        WHERE LOWER(city_ascii) = LOWER($1) OR LOWER(city) = LOWER($1)
        ORDER BY population DESC NULLS LAST
        LIMIT 1
    `
	var c types.CityCenter
	if err := r.pgpool.QueryRow(ctx, query, name).Scan(
		&c.ID, &c.City, &c.CityASCII, &c.Country, &c.ISO2, &c.Latitude, &c.Longitude, &c.Population,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("city.found", false))
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		r.logger.ErrorContext(ctx, "Failed to look up city centre", slog.String("city", name), slog.Any("error", err))
		return nil, fmt.Errorf("failed to query city centre: %w", err)
	}
	span.SetAttributes(attribute.Bool("city.found", true))
	return &c, nil
}
